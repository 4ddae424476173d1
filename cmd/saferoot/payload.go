package main

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/urfave/cli/v2"

	"github.com/tos-network/saferoot/internal/flags"
	"github.com/tos-network/saferoot/sysaction"
)

var (
	saferootFlag = &cli.StringFlag{
		Name:     "saferoot",
		Usage:    "instance address",
		Category: flags.SaferootCategory,
	}
	serviceFlag = &cli.StringFlag{
		Name:     "service",
		Usage:    "service address allowed to sweep",
		Category: flags.SaferootCategory,
	}
	backupFlag = &cli.StringFlag{
		Name:     "backup",
		Usage:    "backup wallet receiving swept assets",
		Category: flags.SaferootCategory,
	}
	entryFlag = &cli.StringSliceFlag{
		Name:     "entry",
		Usage:    "safeguard entry as STANDARD:CONTRACT[:TOKENID], repeatable",
		Category: flags.SaferootCategory,
	}
	keyFlag = &cli.StringSliceFlag{
		Name:     "key",
		Usage:    "safeguard key to sweep, repeatable",
		Category: flags.SaferootCategory,
	}
	tokenFlag = &cli.StringFlag{
		Name:     "token",
		Usage:    "token contract address",
		Category: flags.SaferootCategory,
	}
	tokenIDFlag = &cli.StringFlag{
		Name:     "id",
		Usage:    "token id (decimal or 0x-hex)",
		Value:    "0",
		Category: flags.SaferootCategory,
	}
	hexFlag = &cli.BoolFlag{
		Name:  "hex",
		Usage: "print the message data as hex instead of JSON",
	}
)

var commandPayload = &cli.Command{
	Name:  "payload",
	Usage: "build system action message data",
	Description: `
Each subcommand prints the data of a message to the system action address.
The sender of that message is the caller of the action.`,
	Subcommands: []*cli.Command{
		{
			Name:   "create",
			Usage:  "deploy an instance owned by the sender",
			Flags:  []cli.Flag{serviceFlag, backupFlag, entryFlag, hexFlag},
			Action: payloadCreate,
		},
		{
			Name:   "add",
			Usage:  "register safeguards",
			Flags:  []cli.Flag{saferootFlag, entryFlag, hexFlag},
			Action: payloadAdd,
		},
		{
			Name:   "initiate",
			Usage:  "sweep safeguards to the backup wallet",
			Flags:  []cli.Flag{saferootFlag, keyFlag, hexFlag},
			Action: payloadInitiate,
		},
		{
			Name:   "set-backup",
			Usage:  "replace the backup wallet",
			Flags:  []cli.Flag{saferootFlag, backupFlag, hexFlag},
			Action: payloadSetBackup,
		},
		{
			Name:   "withdraw-erc20",
			Usage:  "withdraw the instance's ERC20 balance to the user",
			Flags:  []cli.Flag{saferootFlag, tokenFlag, hexFlag},
			Action: payloadWithdrawERC20,
		},
		{
			Name:   "withdraw-erc721",
			Usage:  "withdraw an ERC721 token held by the instance to the user",
			Flags:  []cli.Flag{saferootFlag, tokenFlag, tokenIDFlag, hexFlag},
			Action: payloadWithdrawERC721,
		},
	},
}

func payloadCreate(ctx *cli.Context) error {
	service, err := addressFlag(ctx, serviceFlag)
	if err != nil {
		return err
	}
	backup, err := addressFlag(ctx, backupFlag)
	if err != nil {
		return err
	}
	entries, err := parseEntries(ctx.StringSlice(entryFlag.Name))
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		return printPayload(ctx, sysaction.ActionSaferootCreate, sysaction.SaferootCreatePayload{
			Service: service,
			Backup:  backup,
		})
	}
	return printPayload(ctx, sysaction.ActionSaferootCreateWithSafeguards, sysaction.SaferootCreateWithSafeguardsPayload{
		Service: service,
		Backup:  backup,
		Entries: entries,
	})
}

func payloadAdd(ctx *cli.Context) error {
	instance, err := addressFlag(ctx, saferootFlag)
	if err != nil {
		return err
	}
	entries, err := parseEntries(ctx.StringSlice(entryFlag.Name))
	if err != nil {
		return err
	}
	return printPayload(ctx, sysaction.ActionSafeguardAdd, sysaction.SafeguardAddPayload{
		Saferoot: instance,
		Entries:  entries,
	})
}

func payloadInitiate(ctx *cli.Context) error {
	instance, err := addressFlag(ctx, saferootFlag)
	if err != nil {
		return err
	}
	var keys []common.Hash
	for _, s := range ctx.StringSlice(keyFlag.Name) {
		b, err := hexutil.Decode(s)
		if err != nil || len(b) != common.HashLength {
			return fmt.Errorf("invalid key %q", s)
		}
		keys = append(keys, common.BytesToHash(b))
	}
	return printPayload(ctx, sysaction.ActionSafeguardInitiate, sysaction.SafeguardInitiatePayload{
		Saferoot: instance,
		Keys:     keys,
	})
}

func payloadSetBackup(ctx *cli.Context) error {
	instance, err := addressFlag(ctx, saferootFlag)
	if err != nil {
		return err
	}
	backup, err := addressFlag(ctx, backupFlag)
	if err != nil {
		return err
	}
	return printPayload(ctx, sysaction.ActionSaferootSetBackup, sysaction.SaferootSetBackupPayload{
		Saferoot: instance,
		Backup:   backup,
	})
}

func payloadWithdrawERC20(ctx *cli.Context) error {
	instance, err := addressFlag(ctx, saferootFlag)
	if err != nil {
		return err
	}
	tok, err := addressFlag(ctx, tokenFlag)
	if err != nil {
		return err
	}
	return printPayload(ctx, sysaction.ActionSaferootWithdrawERC20, sysaction.SaferootWithdrawERC20Payload{
		Saferoot: instance,
		Token:    tok,
	})
}

func payloadWithdrawERC721(ctx *cli.Context) error {
	instance, err := addressFlag(ctx, saferootFlag)
	if err != nil {
		return err
	}
	tok, err := addressFlag(ctx, tokenFlag)
	if err != nil {
		return err
	}
	id, err := parseBig(ctx.String(tokenIDFlag.Name))
	if err != nil {
		return err
	}
	return printPayload(ctx, sysaction.ActionSaferootWithdrawERC721, sysaction.SaferootWithdrawERC721Payload{
		Saferoot: instance,
		Token:    tok,
		TokenID:  (*hexutil.Big)(id),
	})
}

func printPayload(ctx *cli.Context, kind sysaction.ActionKind, payload interface{}) error {
	data, err := sysaction.MakeSysAction(kind, payload)
	if err != nil {
		return err
	}
	if ctx.Bool(hexFlag.Name) {
		fmt.Fprintln(ctx.App.Writer, hexutil.Encode(data))
	} else {
		fmt.Fprintln(ctx.App.Writer, string(data))
	}
	return nil
}

func addressFlag(ctx *cli.Context, f *cli.StringFlag) (common.Address, error) {
	if !ctx.IsSet(f.Name) {
		return common.Address{}, fmt.Errorf("--%s is required", f.Name)
	}
	return parseAddress(ctx.String(f.Name))
}

// parseEntries decodes STANDARD:CONTRACT[:TOKENID] entries.
func parseEntries(values []string) ([]sysaction.SafeEntryArgs, error) {
	entries := make([]sysaction.SafeEntryArgs, 0, len(values))
	for _, value := range values {
		parts := strings.Split(value, ":")
		if len(parts) < 2 || len(parts) > 3 {
			return nil, fmt.Errorf("invalid entry %q, want STANDARD:CONTRACT[:TOKENID]", value)
		}
		contract, err := parseAddress(parts[1])
		if err != nil {
			return nil, err
		}
		entry := sysaction.SafeEntryArgs{Standard: strings.ToUpper(parts[0]), ContractAddress: contract}
		if len(parts) == 3 {
			id, err := parseBig(parts[2])
			if err != nil {
				return nil, err
			}
			entry.TokenID = (*hexutil.Big)(id)
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

func parseBig(s string) (*big.Int, error) {
	n, ok := new(big.Int).SetString(s, 0)
	if !ok || n.Sign() < 0 || n.BitLen() > 256 {
		return nil, fmt.Errorf("invalid number %q", s)
	}
	return n, nil
}
