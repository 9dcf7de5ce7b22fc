// Copyright 2026 Quayside Software
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"

	gosettle "github.com/quayside-io/gosettle"
	"github.com/quayside-io/gosettle/common"
	"github.com/quayside-io/gosettle/reserve"

	"github.com/fxamacker/cbor/v2"
)

type cmdFlags struct {
	flagset *flag.FlagSet
	amount  int64
	depth   int
	verbose bool
}

func newCmdFlags() *cmdFlags {
	f := &cmdFlags{
		flagset: flag.NewFlagSet(os.Args[0], flag.ExitOnError),
	}
	f.flagset.Int64Var(
		&f.amount,
		"amount",
		100,
		"amount of currency to settle per session",
	)
	f.flagset.IntVar(
		&f.depth,
		"depth",
		2,
		"number of nested re-entries to perform",
	)
	f.flagset.BoolVar(&f.verbose, "verbose", false, "enable debug logging")
	return f
}

// sessionPayload is the opaque payload passed through Acquire, CBOR-encoded
type sessionPayload struct {
	// Tells the CBOR decoder to convert to/from a struct and a CBOR array
	_         struct{} `cbor:",toarray"`
	Amount    int64
	Remaining int
}

func main() {
	f := newCmdFlags()
	if err := f.flagset.Parse(os.Args[1:]); err != nil {
		fmt.Printf("failed to parse command args: %s\n", err)
		os.Exit(1)
	}
	logLevel := slog.LevelInfo
	if f.verbose {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(
		slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}),
	)

	trader := common.HashParticipantId([]byte("trader"))
	gold := common.HashCurrencyId([]byte("gold"))

	r := reserve.NewMemReserve()
	r.Deposit(gold, f.amount*10)
	m := gosettle.NewManager(
		gosettle.WithReserve(r),
		gosettle.WithLogger(logger),
	)
	m.Sync(gold)

	// Each level of the session takes the amount out of the pool, pays it
	// back in, settles, and re-enters until the requested depth is reached
	var callback gosettle.LockCallbackFunc
	callback = func(payload []byte) ([]byte, error) {
		var p sessionPayload
		if err := cbor.Unmarshal(payload, &p); err != nil {
			return nil, fmt.Errorf("decode payload: %w", err)
		}
		if err := m.Take(gold, trader, p.Amount); err != nil {
			return nil, err
		}
		r.Deposit(gold, p.Amount)
		paid, err := m.Settle(gold)
		if err != nil {
			return nil, err
		}
		logger.Info(
			"settled",
			"paid", paid,
			"remaining", p.Remaining,
			"delta", m.CurrencyDelta(trader, gold),
		)
		if p.Remaining > 0 {
			nestedPayload, err := cbor.Marshal(
				sessionPayload{
					Amount:    p.Amount,
					Remaining: p.Remaining - 1,
				},
			)
			if err != nil {
				return nil, fmt.Errorf("encode payload: %w", err)
			}
			return m.Acquire(trader, callback, nestedPayload)
		}
		return payload, nil
	}

	payload, err := cbor.Marshal(
		sessionPayload{Amount: f.amount, Remaining: f.depth},
	)
	if err != nil {
		fmt.Printf("failed to encode payload: %s\n", err)
		os.Exit(1)
	}
	if _, err := m.Acquire(trader, callback, payload); err != nil {
		fmt.Printf("session failed: %s\n", err)
		os.Exit(1)
	}

	digest, err := m.AuditDigest()
	if err != nil {
		fmt.Printf("failed to generate audit digest: %s\n", err)
		os.Exit(1)
	}
	fmt.Printf("trader: %s\n", trader.Bech32("part"))
	fmt.Printf("currency: %s\n", gold.Bech32("cur"))
	fmt.Printf("locks recorded: %d\n", m.LocksLength())
	for i := 0; i < m.LocksLength(); i++ {
		rec, err := m.Locks(i)
		if err != nil {
			fmt.Printf("failed to read lock record: %s\n", err)
			os.Exit(1)
		}
		fmt.Printf("  record %d: %s\n", i, rec.String())
	}
	fmt.Printf("audit digest: %s\n", digest.String())
}
