package main

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/log"
	"github.com/fatih/color"
	"github.com/holiman/uint256"
	"github.com/urfave/cli/v2"

	"github.com/tos-network/saferoot/core"
	"github.com/tos-network/saferoot/core/vm"
	"github.com/tos-network/saferoot/internal/flags"
	"github.com/tos-network/saferoot/saferootidx"
	"github.com/tos-network/saferoot/sysaction"
	"github.com/tos-network/saferoot/token"
)

var (
	configFlag = &cli.StringFlag{
		Name:     "config",
		Usage:    "scenario TOML file",
		Required: true,
		Category: flags.SaferootCategory,
	}
	datadirFlag = &cli.StringFlag{
		Name:     "datadir",
		Usage:    "ledger database directory, overrides the scenario's Ledger.DataDir",
		Category: flags.LedgerCategory,
	}
	noColorFlag = &cli.BoolFlag{
		Name:  "nocolor",
		Usage: "disable coloured output",
	}
)

var commandSimulate = &cli.Command{
	Name:  "simulate",
	Usage: "run a scenario against a local ledger",
	Description: `
Deploys the scenario's tokens, applies its steps in order and prints every
step's outcome together with the indexed safeguards and final balances.
A step whose Expect does not match its outcome stops the run with an error.`,
	Flags: []cli.Flag{
		configFlag,
		datadirFlag,
		noColorFlag,
		jsonFlag,
	},
	Action: func(ctx *cli.Context) error {
		var cfg scenarioConfig
		cfg.Ledger = core.DefaultConfig
		if err := loadScenario(ctx.String(configFlag.Name), &cfg); err != nil {
			return err
		}
		if ctx.IsSet(datadirFlag.Name) {
			cfg.Ledger.DataDir = ctx.String(datadirFlag.Name)
		}
		if ctx.Bool(noColorFlag.Name) {
			color.NoColor = true
		}
		sim, err := newSimulation(&cfg)
		if err != nil {
			return err
		}
		defer sim.close()

		runErr := sim.run(cfg.Steps)
		r, err := sim.report()
		if err != nil {
			return err
		}
		if ctx.Bool(jsonFlag.Name) {
			err = r.writeJSON(ctx.App.Writer)
		} else {
			r.writeTables(ctx.App.Writer)
		}
		if runErr != nil {
			return runErr
		}
		return err
	},
}

var errExpectation = errors.New("step outcome does not match expectation")

type deployedToken struct {
	name string
	kind token.Kind
	addr common.Address
}

type mintedID struct {
	token common.Address
	id    *uint256.Int
}

// stepResult is the outcome of one scenario step.
type stepResult struct {
	Index  int         `json:"index"`
	Op     string      `json:"op"`
	From   string      `json:"from,omitempty"`
	OK     bool        `json:"ok"`
	Gas    uint64      `json:"gas,omitempty"`
	Logs   int         `json:"logs,omitempty"`
	TxHash common.Hash `json:"txHash,omitempty"`
	Detail string      `json:"detail,omitempty"`
}

type simulation struct {
	ledger   *core.Ledger
	registry *saferootidx.Registry
	indexer  *saferootidx.Indexer

	accounts map[string]common.Address
	names    []string // account names in declaration order
	tokens   []deployedToken
	minted   []mintedID
	instance common.Address
	results  []stepResult
}

func newSimulation(cfg *scenarioConfig) (*simulation, error) {
	ledger, err := core.NewLedger(&cfg.Ledger)
	if err != nil {
		return nil, err
	}
	registry := saferootidx.NewRegistry(saferootidx.DefaultRecentSweeps)
	sim := &simulation{
		ledger:   ledger,
		registry: registry,
		indexer:  saferootidx.NewIndexer(ledger, registry),
		accounts: make(map[string]common.Address),
	}
	for name, hex := range cfg.Accounts {
		if !common.IsHexAddress(hex) {
			ledger.Close()
			return nil, fmt.Errorf("account %s: invalid address %q", name, hex)
		}
		sim.accounts[name] = common.HexToAddress(hex)
		sim.names = append(sim.names, name)
	}
	sort.Strings(sim.names)

	for _, tc := range cfg.Tokens {
		kind, err := token.ParseKind(tc.Kind)
		if err != nil {
			ledger.Close()
			return nil, fmt.Errorf("token %s: %w", tc.Name, err)
		}
		if !common.IsHexAddress(tc.Address) {
			ledger.Close()
			return nil, fmt.Errorf("token %s: invalid address %q", tc.Name, tc.Address)
		}
		dt := deployedToken{name: tc.Name, kind: kind, addr: common.HexToAddress(tc.Address)}
		err = ledger.Update(func(db vm.StateDB) error {
			if k, err := token.KindAt(db, dt.addr); err == nil && k == dt.kind {
				return nil // reopened ledger
			}
			return token.Deploy(db, dt.addr, dt.kind)
		})
		if err != nil {
			ledger.Close()
			return nil, fmt.Errorf("token %s: %w", tc.Name, err)
		}
		sim.tokens = append(sim.tokens, dt)
	}
	return sim, nil
}

func (sim *simulation) close() {
	if err := sim.ledger.Close(); err != nil {
		log.Warn("Failed to close ledger", "err", err)
	}
}

func (sim *simulation) run(steps []stepConfig) error {
	for i, step := range steps {
		res := sim.step(step)
		res.Index = i + 1
		res.Op = step.Op
		res.From = step.From
		sim.results = append(sim.results, res)

		switch strings.ToLower(step.Expect) {
		case "":
		case "ok":
			if !res.OK {
				return fmt.Errorf("step %d (%s): %w: want ok, got %s", res.Index, step.Op, errExpectation, res.Detail)
			}
		case "fail":
			if res.OK {
				return fmt.Errorf("step %d (%s): %w: want fail", res.Index, step.Op, errExpectation)
			}
		default:
			return fmt.Errorf("step %d: unknown Expect %q", res.Index, step.Expect)
		}
	}
	return nil
}

func (sim *simulation) step(step stepConfig) stepResult {
	var err error
	switch step.Op {
	case "mint", "approve", "approve-all", "revoke-all", "transfer":
		err = sim.tokenStep(step)
	case "commit":
		var root common.Hash
		if root, err = sim.ledger.Commit(); err == nil {
			return stepResult{OK: true, Detail: "root " + root.Hex()}
		}
	case "create", "add", "sweep", "set-backup", "withdraw-erc20", "withdraw-erc721":
		return sim.actionStep(step)
	default:
		err = fmt.Errorf("unknown op %q", step.Op)
	}
	if err != nil {
		return stepResult{Detail: err.Error()}
	}
	return stepResult{OK: true}
}

// tokenStep performs token-side setup directly on state.
func (sim *simulation) tokenStep(step stepConfig) error {
	tok, err := sim.token(step.Token)
	if err != nil {
		return err
	}
	return sim.ledger.Update(func(db vm.StateDB) error {
		switch tok.kind {
		case token.KindERC20:
			return sim.erc20Step(token.NewERC20(db, tok.addr), step)
		case token.KindERC721:
			return sim.erc721Step(token.NewERC721(db, tok.addr), step)
		case token.KindERC1155:
			return sim.erc1155Step(token.NewERC1155(db, tok.addr), step)
		}
		return token.ErrUnsupported
	})
}

func (sim *simulation) erc20Step(t *token.StandardERC20, step stepConfig) error {
	amount, err := parseAmount(step.Amount)
	if err != nil {
		return err
	}
	switch step.Op {
	case "mint":
		to, err := sim.resolve(step.To)
		if err != nil {
			return err
		}
		return t.Mint(to, amount)
	case "approve":
		from, spender, err := sim.resolvePair(step.From, step.Spender)
		if err != nil {
			return err
		}
		return t.Approve(from, spender, amount)
	case "transfer":
		from, to, err := sim.resolvePair(step.From, step.To)
		if err != nil {
			return err
		}
		return t.Transfer(from, to, amount)
	}
	return fmt.Errorf("%s: %w", step.Op, token.ErrUnsupported)
}

func (sim *simulation) erc721Step(t *token.StandardERC721, step stepConfig) error {
	switch step.Op {
	case "mint":
		to, err := sim.resolve(step.To)
		if err != nil {
			return err
		}
		id, err := parseAmount(step.ID)
		if err != nil {
			return err
		}
		if err := t.Mint(to, id); err != nil {
			return err
		}
		sim.minted = append(sim.minted, mintedID{token: t.Address(), id: id})
		return nil
	case "approve":
		from, spender, err := sim.resolvePair(step.From, step.Spender)
		if err != nil {
			return err
		}
		id, err := parseAmount(step.ID)
		if err != nil {
			return err
		}
		return t.Approve(from, spender, id)
	case "approve-all", "revoke-all":
		from, spender, err := sim.resolvePair(step.From, step.Spender)
		if err != nil {
			return err
		}
		return t.SetApprovalForAll(from, spender, step.Op == "approve-all")
	case "transfer":
		from, to, err := sim.resolvePair(step.From, step.To)
		if err != nil {
			return err
		}
		id, err := parseAmount(step.ID)
		if err != nil {
			return err
		}
		return t.TransferFrom(from, from, to, id)
	}
	return fmt.Errorf("%s: %w", step.Op, token.ErrUnsupported)
}

func (sim *simulation) erc1155Step(t *token.StandardERC1155, step stepConfig) error {
	switch step.Op {
	case "mint":
		to, err := sim.resolve(step.To)
		if err != nil {
			return err
		}
		id, err := parseAmount(step.ID)
		if err != nil {
			return err
		}
		amount, err := parseAmount(step.Amount)
		if err != nil {
			return err
		}
		if err := t.Mint(to, id, amount); err != nil {
			return err
		}
		sim.minted = append(sim.minted, mintedID{token: t.Address(), id: id})
		return nil
	case "approve-all", "revoke-all":
		from, spender, err := sim.resolvePair(step.From, step.Spender)
		if err != nil {
			return err
		}
		return t.SetApprovalForAll(from, spender, step.Op == "approve-all")
	case "transfer":
		from, to, err := sim.resolvePair(step.From, step.To)
		if err != nil {
			return err
		}
		id, err := parseAmount(step.ID)
		if err != nil {
			return err
		}
		amount, err := parseAmount(step.Amount)
		if err != nil {
			return err
		}
		return t.SafeTransferFrom(from, from, to, id, amount, nil)
	}
	return fmt.Errorf("%s: %w", step.Op, token.ErrUnsupported)
}

// actionStep sends a system action message and records its receipt.
func (sim *simulation) actionStep(step stepConfig) stepResult {
	from, err := sim.resolve(step.From)
	if err != nil {
		return stepResult{Detail: err.Error()}
	}
	kind, payload, err := sim.payload(step)
	if err != nil {
		return stepResult{Detail: err.Error()}
	}
	msg, err := core.NewActionMessage(from, kind, payload)
	if err != nil {
		return stepResult{Detail: err.Error()}
	}
	receipt, err := sim.ledger.Apply(msg)
	if receipt == nil {
		return stepResult{Detail: err.Error()}
	}
	// The indexer is fed directly rather than through the log feed so later
	// steps see this step's safeguards.
	sim.indexer.ProcessLogs(receipt.Logs)

	res := stepResult{
		OK:     receipt.Status == types.ReceiptStatusSuccessful,
		Gas:    receipt.GasUsed,
		Logs:   len(receipt.Logs),
		TxHash: receipt.TxHash,
	}
	if err != nil {
		res.Detail = err.Error()
	}
	if res.OK && receipt.ContractAddress != (common.Address{}) {
		sim.instance = receipt.ContractAddress
		res.Detail = "saferoot " + receipt.ContractAddress.Hex()
	}
	return res
}

func (sim *simulation) payload(step stepConfig) (sysaction.ActionKind, interface{}, error) {
	switch step.Op {
	case "create":
		service, backup, err := sim.resolvePair(step.Service, step.Backup)
		if err != nil {
			return "", nil, err
		}
		if len(step.Entries) == 0 {
			return sysaction.ActionSaferootCreate, sysaction.SaferootCreatePayload{Service: service, Backup: backup}, nil
		}
		entries, err := sim.entries(step.Entries)
		if err != nil {
			return "", nil, err
		}
		return sysaction.ActionSaferootCreateWithSafeguards, sysaction.SaferootCreateWithSafeguardsPayload{
			Service: service, Backup: backup, Entries: entries,
		}, nil

	case "add":
		entries, err := sim.entries(step.Entries)
		if err != nil {
			return "", nil, err
		}
		return sysaction.ActionSafeguardAdd, sysaction.SafeguardAddPayload{Saferoot: sim.instance, Entries: entries}, nil

	case "sweep":
		keys, err := sim.sweepKeys(step.Keys)
		if err != nil {
			return "", nil, err
		}
		return sysaction.ActionSafeguardInitiate, sysaction.SafeguardInitiatePayload{Saferoot: sim.instance, Keys: keys}, nil

	case "set-backup":
		backup, err := sim.resolve(step.Backup)
		if err != nil {
			return "", nil, err
		}
		return sysaction.ActionSaferootSetBackup, sysaction.SaferootSetBackupPayload{Saferoot: sim.instance, Backup: backup}, nil

	case "withdraw-erc20":
		tok, err := sim.resolve(step.Token)
		if err != nil {
			return "", nil, err
		}
		return sysaction.ActionSaferootWithdrawERC20, sysaction.SaferootWithdrawERC20Payload{Saferoot: sim.instance, Token: tok}, nil

	case "withdraw-erc721":
		tok, err := sim.resolve(step.Token)
		if err != nil {
			return "", nil, err
		}
		id, err := parseBig(orZero(step.ID))
		if err != nil {
			return "", nil, err
		}
		return sysaction.ActionSaferootWithdrawERC721, sysaction.SaferootWithdrawERC721Payload{
			Saferoot: sim.instance, Token: tok, TokenID: (*hexutil.Big)(id),
		}, nil
	}
	return "", nil, fmt.Errorf("unknown op %q", step.Op)
}

func (sim *simulation) entries(cfgs []entryConfig) ([]sysaction.SafeEntryArgs, error) {
	out := make([]sysaction.SafeEntryArgs, 0, len(cfgs))
	for _, e := range cfgs {
		addr, err := sim.resolve(e.Token)
		if err != nil {
			return nil, err
		}
		arg := sysaction.SafeEntryArgs{Standard: strings.ToUpper(e.Standard), ContractAddress: addr}
		if e.ID != "" {
			id, err := parseBig(e.ID)
			if err != nil {
				return nil, err
			}
			arg.TokenID = (*hexutil.Big)(id)
		}
		out = append(out, arg)
	}
	return out, nil
}

// sweepKeys returns the given keys, or every indexed key of the current
// instance when none are given.
func (sim *simulation) sweepKeys(hexKeys []string) ([]common.Hash, error) {
	var keys []common.Hash
	if len(hexKeys) == 0 {
		for _, rec := range sim.registry.Safeguards(sim.instance) {
			keys = append(keys, rec.Key)
		}
		return keys, nil
	}
	for _, s := range hexKeys {
		b, err := hexutil.Decode(s)
		if err != nil || len(b) != common.HashLength {
			return nil, fmt.Errorf("invalid key %q", s)
		}
		keys = append(keys, common.BytesToHash(b))
	}
	return keys, nil
}

func (sim *simulation) token(name string) (deployedToken, error) {
	for _, t := range sim.tokens {
		if t.name == name || (common.IsHexAddress(name) && t.addr == common.HexToAddress(name)) {
			return t, nil
		}
	}
	return deployedToken{}, fmt.Errorf("unknown token %q", name)
}

// resolve maps a scenario name to an address.
func (sim *simulation) resolve(name string) (common.Address, error) {
	if name == "saferoot" {
		if sim.instance == (common.Address{}) {
			return common.Address{}, errors.New("no saferoot created yet")
		}
		return sim.instance, nil
	}
	if addr, ok := sim.accounts[name]; ok {
		return addr, nil
	}
	for _, t := range sim.tokens {
		if t.name == name {
			return t.addr, nil
		}
	}
	if common.IsHexAddress(name) {
		return common.HexToAddress(name), nil
	}
	return common.Address{}, fmt.Errorf("unknown name %q", name)
}

func (sim *simulation) resolvePair(a, b string) (common.Address, common.Address, error) {
	x, err := sim.resolve(a)
	if err != nil {
		return common.Address{}, common.Address{}, err
	}
	y, err := sim.resolve(b)
	if err != nil {
		return common.Address{}, common.Address{}, err
	}
	return x, y, nil
}

// parseAmount accepts decimal, 0x-hex or "max".
func parseAmount(s string) (*uint256.Int, error) {
	if s == "max" {
		return new(uint256.Int).Not(new(uint256.Int)), nil
	}
	n, err := parseBig(orZero(s))
	if err != nil {
		return nil, err
	}
	v, _ := uint256.FromBig(n)
	return v, nil
}

func orZero(s string) string {
	if s == "" {
		return "0"
	}
	return s
}
