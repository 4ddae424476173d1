package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/ethereum/go-ethereum/common"
	"github.com/fatih/color"
	"github.com/holiman/uint256"
	"github.com/olekukonko/tablewriter"

	"github.com/tos-network/saferoot/core/vm"
	"github.com/tos-network/saferoot/saferootidx"
	"github.com/tos-network/saferoot/token"
)

type balanceRow struct {
	Holder  string `json:"holder"`
	Token   string `json:"token"`
	TokenID string `json:"tokenId,omitempty"`
	Amount  string `json:"amount"`
}

type report struct {
	Saferoot   common.Address                `json:"saferoot"`
	Steps      []stepResult                  `json:"steps"`
	Safeguards []saferootidx.SafeguardRecord `json:"safeguards"`
	Balances   []balanceRow                  `json:"balances"`
}

func (sim *simulation) report() (*report, error) {
	r := &report{
		Saferoot:   sim.instance,
		Steps:      sim.results,
		Safeguards: sim.registry.Safeguards(sim.instance),
	}
	holders := make([]string, 0, len(sim.names)+1)
	holders = append(holders, sim.names...)
	if sim.instance != (common.Address{}) {
		holders = append(holders, "saferoot")
	}
	err := sim.ledger.View(func(db vm.StateDB, _ token.Resolver) error {
		for _, t := range sim.tokens {
			for _, h := range holders {
				addr, _ := sim.resolve(h)
				switch t.kind {
				case token.KindERC20:
					bal, _ := token.NewERC20(db, t.addr).BalanceOf(addr)
					if !bal.IsZero() {
						r.Balances = append(r.Balances, balanceRow{Holder: h, Token: t.name, Amount: bal.ToBig().String()})
					}
				case token.KindERC721:
					for _, m := range sim.mintedOf(t.addr) {
						owner, err := token.NewERC721(db, t.addr).OwnerOf(m)
						if err == nil && owner == addr {
							r.Balances = append(r.Balances, balanceRow{Holder: h, Token: t.name, TokenID: m.ToBig().String(), Amount: "1"})
						}
					}
				case token.KindERC1155:
					for _, m := range sim.mintedOf(t.addr) {
						bal, _ := token.NewERC1155(db, t.addr).BalanceOf(addr, m)
						if !bal.IsZero() {
							r.Balances = append(r.Balances, balanceRow{Holder: h, Token: t.name, TokenID: m.ToBig().String(), Amount: bal.ToBig().String()})
						}
					}
				}
			}
		}
		return nil
	})
	return r, err
}

// mintedOf returns the distinct ids minted on tokenAddr in mint order.
func (sim *simulation) mintedOf(tokenAddr common.Address) []*uint256.Int {
	var out []*uint256.Int
	seen := make(map[[32]byte]bool)
	for _, m := range sim.minted {
		if m.token != tokenAddr || seen[m.id.Bytes32()] {
			continue
		}
		seen[m.id.Bytes32()] = true
		out = append(out, m.id)
	}
	return out
}

func (r *report) writeJSON(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(r)
}

func (r *report) writeTables(w io.Writer) {
	var (
		ok   = color.New(color.FgGreen).SprintFunc()
		fail = color.New(color.FgRed).SprintFunc()
		bold = color.New(color.Bold).SprintFunc()
	)
	fmt.Fprintln(w, bold("Steps"))
	steps := tablewriter.NewWriter(w)
	steps.SetHeader([]string{"#", "Op", "From", "Status", "Gas", "Logs", "Detail"})
	for _, s := range r.Steps {
		status := ok("OK")
		if !s.OK {
			status = fail("FAILED")
		}
		gas := ""
		if s.Gas > 0 {
			gas = strconv.FormatUint(s.Gas, 10)
		}
		steps.Append([]string{strconv.Itoa(s.Index), s.Op, s.From, status, gas, strconv.Itoa(s.Logs), s.Detail})
	}
	steps.Render()

	if r.Saferoot != (common.Address{}) {
		fmt.Fprintln(w)
		fmt.Fprintln(w, bold("Safeguards of "+r.Saferoot.Hex()))
		sg := tablewriter.NewWriter(w)
		sg.SetHeader([]string{"Key", "Standard", "Token ID", "Sweeps", "Last"})
		for _, rec := range r.Safeguards {
			last := "-"
			if rec.Sweeps > 0 {
				last = ok("transferred")
				if rec.LastSkipped {
					last = fail("skipped")
				}
			}
			sg.Append([]string{rec.Key.TerminalString(), rec.Standard.String(), rec.TokenID.String(), strconv.Itoa(rec.Sweeps), last})
		}
		sg.Render()
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, bold("Balances"))
	bal := tablewriter.NewWriter(w)
	bal.SetHeader([]string{"Holder", "Token", "Token ID", "Amount"})
	for _, b := range r.Balances {
		bal.Append([]string{b.Holder, b.Token, b.TokenID, b.Amount})
	}
	bal.Render()
}
