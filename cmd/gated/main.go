package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io/ioutil"
	"os"
	"path/filepath"

	"github.com/tendermint/tendermint/libs/log"

	"github.com/hashgate/hashgate"
	"github.com/hashgate/hashgate/factory"
	"github.com/hashgate/hashgate/ledger"
	"github.com/hashgate/hashgate/store/iavl"
)

var (
	flagHome = "home"
	varHome  *string
)

func init() {
	defaultHome := filepath.Join(os.ExpandEnv("$HOME"), ".gated")
	varHome = flag.String(flagHome, defaultHome, "directory to store files under")
}

func helpMessage() {
	fmt.Println("gated")
	fmt.Println("        HashGate escrow engine")
	fmt.Println("")
	fmt.Println("help    Print this message")
	fmt.Println("init    Load genesis options into a fresh store")
	fmt.Println("version Print the app version")
	fmt.Println("")
	fmt.Println("  -home string")
	fmt.Println("        directory to store files under")
}

// initStore applies the genesis file to an empty store and commits the
// first version. The genesis file is a json object whose sections are
// consumed by the package initializers.
func initStore(logger log.Logger, home, genesisPath string) error {
	raw, err := ioutil.ReadFile(genesisPath)
	if err != nil {
		return fmt.Errorf("read genesis: %v", err)
	}
	var opts hashgate.Options
	if err := json.Unmarshal(raw, &opts); err != nil {
		return fmt.Errorf("parse genesis: %v", err)
	}

	kv := iavl.NewCommitStore(filepath.Join(home, "data"), "gated")
	if err := kv.LoadLatestVersion(); err != nil {
		return fmt.Errorf("load store: %v", err)
	}
	if v := kv.LatestVersion(); v.Version != 0 {
		return fmt.Errorf("store already initialized at version %d", v.Version)
	}

	cash := ledger.NewController()
	inits := []hashgate.Initializer{
		&ledger.Initializer{Minter: cash},
		factory.Initializer{},
	}
	for _, ini := range inits {
		if err := ini.FromGenesis(opts, kv); err != nil {
			return err
		}
	}

	id := kv.Commit()
	logger.Info("Genesis loaded", "version", id.Version, "hash", fmt.Sprintf("%X", id.Hash))
	return nil
}

func main() {
	logger := log.NewTMLogger(log.NewSyncWriter(os.Stdout)).
		With("module", "gated")

	flag.Parse()
	if flag.NArg() == 0 {
		fmt.Println("Missing command:")
		helpMessage()
		os.Exit(1)
	}

	cmd := flag.Arg(0)
	rest := flag.Args()[1:]

	switch cmd {
	case "help":
		helpMessage()
	case "init":
		if len(rest) != 1 {
			fmt.Println("Usage: gated init <genesis.json>")
			os.Exit(1)
		}
		if err := initStore(logger, *varHome, rest[0]); err != nil {
			logger.Error("Init failed", "err", err)
			os.Exit(1)
		}
	case "version":
		fmt.Println(hashgate.Version())
	default:
		fmt.Printf("Unknown command: %s\n", cmd)
		helpMessage()
		os.Exit(1)
	}
}
