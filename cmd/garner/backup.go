// Copyright (c) 2024 The Garner developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package main

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"math/big"
	"os"

	"github.com/ethereum/go-ethereum/rlp"
	"github.com/golang/snappy"
	"github.com/pkg/errors"
	"github.com/qianbin/drlp"
	"gopkg.in/cheggaaa/pb.v1"
	cli "gopkg.in/urfave/cli.v1"

	"github.com/garnerfi/garner/garner"
	"github.com/garnerfi/garner/genesis"
	"github.com/garnerfi/garner/journal"
)

// backupMagic leads every backup file. Bump the suffix when the record
// layout changes.
const backupMagic = "garner-journal-v1"

func backupAction(ctx *cli.Context) error {
	initLogger(ctx)

	path := ctx.Args().First()
	if path == "" {
		fatal("missing FILE argument")
	}

	gene := selectGenesis(ctx)
	instanceDir := makeInstanceDir(ctx, gene)

	jrn := openJournal(instanceDir)
	defer jrn.Close()

	return backupJournal(handleExitSignal(), gene, jrn, path)
}

func restoreAction(ctx *cli.Context) error {
	initLogger(ctx)

	path := ctx.Args().First()
	if path == "" {
		fatal("missing FILE argument")
	}

	gene := selectGenesis(ctx)
	instanceDir := makeInstanceDir(ctx, gene)

	jrn := openJournal(instanceDir)
	defer jrn.Close()

	return restoreJournal(handleExitSignal(), gene, jrn, path)
}

// backupJournal streams every journal entry into a snappy compressed,
// RLP encoded file. Entries are written oldest first, so a restore
// replays them in their original order.
func backupJournal(ctx context.Context, gene *genesis.Genesis, jrn *journal.Journal, path string) error {
	fmt.Println(">> Backing up journal <<")

	tail, err := jrn.Filter(ctx, &journal.Filter{
		Order:   journal.DESC,
		Options: &journal.Options{Limit: 1},
	})
	if err != nil {
		return err
	}
	var total int64
	if len(tail) > 0 {
		total = int64(tail[0].Sequence)
	}

	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, "create backup file")
	}
	defer f.Close()
	w := snappy.NewBufferedWriter(f)

	buf := drlp.AppendString(nil, []byte(backupMagic))
	buf = drlp.AppendString(buf, gene.ID().Bytes())
	if _, err := w.Write(buf); err != nil {
		return err
	}

	bar := pb.New64(total).
		Set64(0).
		SetMaxWidth(90).
		Start()
	defer func() { bar.NotPrint = true }()

	const pageSize = 1000
	after := uint64(0)
	written := 0
	for {
		page, err := jrn.Filter(ctx, &journal.Filter{
			AfterSequence: after,
			Options:       &journal.Options{Limit: pageSize},
		})
		if err != nil {
			return err
		}
		for _, e := range page {
			buf = buf[:0]
			buf = drlp.AppendUint(buf, e.Sequence)
			buf = drlp.AppendString(buf, []byte(e.Op))
			buf = drlp.AppendString(buf, e.Caller.Bytes())
			buf = drlp.AppendString(buf, e.Amount.Bytes())
			buf = drlp.AppendString(buf, e.Reward.Bytes())
			buf = drlp.AppendUint(buf, e.Timestamp)
			if _, err := w.Write(buf); err != nil {
				return err
			}
			written++
			bar.Add64(1)
		}
		if len(page) < pageSize {
			break
		}
		after = page[len(page)-1].Sequence
	}

	if err := w.Close(); err != nil {
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	bar.Finish()

	fmt.Printf("Backed up %v entries to %v\n", written, path)
	return nil
}

// restoreJournal loads a backup file into an empty journal. The
// journal assigns sequences on insert, so a restore refuses backups
// whose entries are not contiguous from 1.
func restoreJournal(ctx context.Context, gene *genesis.Genesis, jrn *journal.Journal, path string) error {
	fmt.Println(">> Restoring journal <<")

	tail, err := jrn.Filter(ctx, &journal.Filter{
		Order:   journal.DESC,
		Options: &journal.Options{Limit: 1},
	})
	if err != nil {
		return err
	}
	if len(tail) > 0 {
		return errors.New("journal is not empty")
	}

	f, err := os.Open(path)
	if err != nil {
		return errors.Wrap(err, "open backup file")
	}
	defer f.Close()

	stat, err := f.Stat()
	if err != nil {
		return err
	}
	bar := pb.New64(stat.Size()).
		SetUnits(pb.U_BYTES).
		SetMaxWidth(90).
		Start()
	defer func() { bar.NotPrint = true }()

	s := rlp.NewStream(snappy.NewReader(bar.NewProxyReader(f)), 0)

	magic, err := s.Bytes()
	if err != nil {
		return errors.Wrap(err, "read file header")
	}
	if string(magic) != backupMagic {
		return errors.Errorf("unknown backup format %q", magic)
	}
	id, err := s.Bytes()
	if err != nil {
		return errors.Wrap(err, "read genesis id")
	}
	if !bytes.Equal(id, gene.ID().Bytes()) {
		return errors.Errorf("genesis mismatch: backup holds %x, requested %v", id, gene.ID())
	}

	restored := 0
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		seq, err := s.Uint64()
		if err == io.EOF {
			break
		}
		if err != nil {
			return errors.Wrap(err, "read sequence")
		}
		op, err := s.Bytes()
		if err != nil {
			return errors.Wrapf(err, "read op at sequence %v", seq)
		}
		caller, err := s.Bytes()
		if err != nil {
			return errors.Wrapf(err, "read caller at sequence %v", seq)
		}
		if len(caller) != 20 {
			return errors.Errorf("invalid caller address at sequence %v", seq)
		}
		amount, err := s.Bytes()
		if err != nil {
			return errors.Wrapf(err, "read amount at sequence %v", seq)
		}
		reward, err := s.Bytes()
		if err != nil {
			return errors.Wrapf(err, "read reward at sequence %v", seq)
		}
		timestamp, err := s.Uint64()
		if err != nil {
			return errors.Wrapf(err, "read timestamp at sequence %v", seq)
		}

		e := &journal.Entry{
			Op:        string(op),
			Caller:    garner.BytesToAddress(caller),
			Amount:    new(big.Int).SetBytes(amount),
			Reward:    new(big.Int).SetBytes(reward),
			Timestamp: timestamp,
		}
		if err := jrn.Record(e); err != nil {
			return errors.Wrapf(err, "record entry %v", seq)
		}
		if e.Sequence != seq {
			return errors.Errorf("backup not contiguous: entry %v assigned sequence %v", seq, e.Sequence)
		}
		restored++
	}
	bar.Finish()

	fmt.Printf("Restored %v entries from %v\n", restored, path)
	return nil
}
