package main

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"reflect"
	"unicode"

	"github.com/naoina/toml"

	"github.com/tos-network/saferoot/core"
)

// These settings ensure that TOML keys use the same names as Go struct fields.
var tomlSettings = toml.Config{
	NormFieldName: func(rt reflect.Type, key string) string {
		return key
	},
	FieldToKey: func(rt reflect.Type, field string) string {
		return field
	},
	MissingField: func(rt reflect.Type, field string) error {
		var link string
		if unicode.IsUpper(rune(rt.Name()[0])) && rt.PkgPath() != "main" {
			link = fmt.Sprintf(", see https://godoc.org/%s#%s for available fields", rt.PkgPath(), rt.Name())
		}
		return fmt.Errorf("field '%s' is not defined in %s%s", field, rt.String(), link)
	},
}

// scenarioConfig is a simulation: the accounts and tokens that exist up
// front and the ordered steps applied to a fresh ledger.
type scenarioConfig struct {
	Ledger   core.Config
	Accounts map[string]string
	Tokens   []tokenConfig
	Steps    []stepConfig
}

type tokenConfig struct {
	Name    string
	Kind    string // ERC20, ERC721 or ERC1155
	Address string
}

// stepConfig is one step. Which fields apply depends on Op:
//
//	mint            Token To Amount ID
//	approve         Token From Spender Amount ID
//	approve-all     Token From Spender
//	revoke-all      Token From Spender
//	transfer        Token From To Amount ID
//	create          From Service Backup [Entries]
//	add             From Entries
//	sweep           From [Keys]
//	set-backup      From Backup
//	withdraw-erc20  From Token
//	withdraw-erc721 From Token ID
//	commit
//
// Names resolve to accounts, tokens, "saferoot" (the last created instance)
// or literal hex addresses.
type stepConfig struct {
	Op      string
	From    string `toml:",omitempty"`
	To      string `toml:",omitempty"`
	Spender string `toml:",omitempty"`
	Token   string `toml:",omitempty"`
	Amount  string `toml:",omitempty"`
	ID      string `toml:",omitempty"`
	Service string `toml:",omitempty"`
	Backup  string `toml:",omitempty"`
	Entries []entryConfig
	Keys    []string `toml:",omitempty"`

	// Expect is "ok" or "fail"; empty accepts either outcome.
	Expect string `toml:",omitempty"`
}

type entryConfig struct {
	Standard string
	Token    string
	ID       string `toml:",omitempty"`
}

func loadScenario(file string, cfg *scenarioConfig) error {
	f, err := os.Open(file)
	if err != nil {
		return err
	}
	defer f.Close()

	err = tomlSettings.NewDecoder(bufio.NewReader(f)).Decode(cfg)
	// Add file name to errors that have a line number.
	if _, ok := err.(*toml.LineError); ok {
		err = errors.New(file + ", " + err.Error())
	}
	return err
}
