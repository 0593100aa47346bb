// Copyright (c) 2024 The Garner developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package main

import (
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/mattn/go-isatty"
	"github.com/pkg/errors"
	cli "gopkg.in/urfave/cli.v1"

	"github.com/garnerfi/garner/garner"
)

func masterKeyAction(ctx *cli.Context) error {
	hasImportFlag := ctx.Bool(importMasterKeyFlag.Name)
	hasExportFlag := ctx.Bool(exportMasterKeyFlag.Name)
	if hasImportFlag && hasExportFlag {
		return errors.Errorf("flag %s and %s are exclusive", importMasterKeyFlag.Name, exportMasterKeyFlag.Name)
	}

	if hasImportFlag {
		if isatty.IsTerminal(os.Stdin.Fd()) {
			fmt.Println("Input hex encoded master key (end with ^d):")
		}
		input, err := io.ReadAll(os.Stdin)
		if err != nil {
			return err
		}

		key, err := crypto.HexToECDSA(strings.TrimSpace(string(input)))
		if err != nil {
			return errors.WithMessage(err, "decode master key")
		}

		if err := crypto.SaveECDSA(masterKeyPath(ctx), key); err != nil {
			return err
		}
		fmt.Println("Master key imported:", garner.Address(crypto.PubkeyToAddress(key.PublicKey)))
		return nil
	}

	masterKey, err := loadOrGeneratePrivateKey(masterKeyPath(ctx))
	if err != nil {
		return err
	}

	if hasExportFlag {
		_, err = fmt.Println(hex.EncodeToString(crypto.FromECDSA(masterKey)))
		return err
	}

	fmt.Println("Master:", garner.Address(crypto.PubkeyToAddress(masterKey.PublicKey)))
	return nil
}
