package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"sync"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/nathanwhit/calc-reward-script/chainclient"
	"github.com/nathanwhit/calc-reward-script/rewards"
	"github.com/nathanwhit/calc-reward-script/storage"
	"github.com/nathanwhit/calc-reward-script/util"
	"github.com/nathanwhit/calc-reward-script/webserver"
)

const version = "1.0"

type CalcRewardServer struct {
	*chainclient.ChainClient
	*storage.Storage
	*rewards.Engine
	Flags
}

// Flags Server flags
type Flags struct {
	networkName string
	rpcOverride string
	account     string
	kind        string
	era         int
	dataDir     string
	noCache     bool
	serve       bool
	apiAddr     string
	apiPort     int
	logDebug    bool
	logTrace    bool
}

func main() {

	var (
		server CalcRewardServer
		err    error
		wg     sync.WaitGroup
	)

	server.parseArgs()

	// Logging
	setupLogging(server.logDebug, server.logTrace)

	// Clean exits
	shutdownChannel := setupCloseChannel()

	// Open/Init database
	server.Storage, err = storage.InitStorage(server.dataDir, server.networkName)
	if err != nil {
		log.WithError(err).Fatal("Could not open storage")
	}

	log.Infof("=== calc-reward v%s ===", version)
	log.Infof("=== Network: %s ===", server.networkName)

	constants, err := util.GetNetworkConstants(server.networkName)
	if err != nil {
		log.WithError(err).Fatal("Unknown network")
	}

	server.ChainClient, err = chainclient.New(constants, server.rpcOverride)
	if err != nil {
		log.WithError(err).Fatal("Cannot connect to chain")
	}

	server.Engine = rewards.NewEngine(server.ChainClient)

	if server.serve {
		wg.Add(1)
		_, err = webserver.Start(webserver.WebServerArgs{
			Network:         server.networkName,
			Engine:          server.Engine,
			Storage:         server.Storage,
			BindAddr:        server.apiAddr,
			BindPort:        server.apiPort,
			ShutdownChannel: shutdownChannel,
			WG:              &wg,
		})
		if err != nil {
			log.WithError(err).Error()
			os.Exit(1)
		}

		wg.Wait()
	} else {
		if err := server.runOnce(); err != nil {
			log.WithError(err).Error("Reward calculation failed")
			server.Storage.Close()
			closeLogging()
			os.Exit(1)
		}
	}

	// Clean close DB, logs
	server.Storage.Close()
	closeLogging()

	os.Exit(0)
}

// runOnce computes a single reward request and prints a human-readable
// summary. The CTC figures are display-only approximations; the exact
// subunit integers are what the engine produced.
func (s *CalcRewardServer) runOnce() error {

	era := s.era
	if era < 0 {
		// Default to the last completed era
		active, err := s.ActiveEra()
		if err != nil {
			return err
		}
		era = int(active) - 1
	}

	var kind rewards.RequestKind
	switch s.kind {
	case "validator":
		kind = rewards.RequestValidator
	case "nominator":
		kind = rewards.RequestNominator
	default:
		return fmt.Errorf("unknown kind '%s'; want validator or nominator", s.kind)
	}

	// Splits are deterministic, so a cached validator record is as good
	// as a recomputation
	if kind == rewards.RequestValidator && !s.noCache {
		if cached, err := s.Storage.GetValidatorReward(era, s.account); err == nil && cached != nil {
			var r rewards.RewardResult
			if err := json.Unmarshal(cached, &r); err == nil {
				log.Debug("Serving cached reward result")
				printValidatorResult(&r)

				return nil
			}
		}
	}

	result, err := s.Compute(rewards.Request{
		Kind:    kind,
		Account: s.account,
		Era:     uint32(era),
	})
	if err != nil {
		return err
	}

	switch result.Kind {
	case rewards.RequestValidator:
		r := result.Validator

		if resultBytes, err := json.Marshal(r); err == nil {
			if err := s.Storage.SaveValidatorReward(era, s.account, resultBytes); err != nil {
				log.WithError(err).Error("Unable to cache validator reward")
			}
		}

		metadata, _ := json.Marshal(map[string]interface{}{
			"era":           era,
			"last_computed": time.Now().UTC().Format(time.RFC3339),
		})
		if err := s.Storage.SaveEraMetadata(era, metadata); err != nil {
			log.WithError(err).Error("Unable to save era metadata")
		}

		printValidatorResult(r)

	case rewards.RequestNominator:
		a := result.Nominator

		fmt.Printf("Nominator %s, era %d\n", a.Nominator, a.Era)

		validators := make([]string, 0, len(a.PerValidator))
		for validator := range a.PerValidator {
			validators = append(validators, validator)
		}
		sort.Strings(validators)

		for _, validator := range validators {
			fmt.Printf("  %s  %s\n", validator, rewards.FormatCTC(a.PerValidator[validator]))
		}

		for _, validator := range a.Missing {
			fmt.Printf("  %s  (no chain data; skipped)\n", validator)
		}

		fmt.Printf("  Total reward: %s\n", rewards.FormatCTC(a.TotalReward))
	}

	return nil
}

func printValidatorResult(r *rewards.RewardResult) {

	fmt.Printf("Validator %s, era %d\n", r.Validator, r.Era)
	fmt.Printf("  Total payout:      %s\n", rewards.FormatCTC(r.TotalPayout))
	fmt.Printf("  Commission:        %s\n", rewards.FormatCTC(r.CommissionPayout))
	fmt.Printf("  Staking payout:    %s\n", rewards.FormatCTC(r.StakingPayout))
	fmt.Printf("  Validator reward:  %s\n", rewards.FormatCTC(r.ValidatorReward))
	fmt.Printf("  Nominators (%d):\n", len(r.NominatorRewards))

	nominators := make([]string, 0, len(r.NominatorRewards))
	for nominator := range r.NominatorRewards {
		nominators = append(nominators, nominator)
	}
	sort.Strings(nominators)

	for _, nominator := range nominators {
		fmt.Printf("    %s  %s\n", nominator, rewards.FormatCTC(r.NominatorRewards[nominator]))
	}
}

func setupCloseChannel() chan interface{} {

	// Create channels for signals
	signalChan := make(chan os.Signal, 1)
	closingChan := make(chan interface{}, 1)

	signal.Notify(signalChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-signalChan
		close(closingChan)
	}()

	return closingChan
}

func (s *CalcRewardServer) parseArgs() {

	// Args
	flag.StringVar(&s.networkName, "network", util.NETWORK_MAINNET, fmt.Sprintf("Which network to use: %s", util.AvailableNetworks()))
	flag.StringVar(&s.rpcOverride, "rpc", "", "Override the network's RPC endpoint")

	flag.StringVar(&s.account, "account", "", "SS58 address to compute rewards for")
	flag.StringVar(&s.kind, "kind", "validator", "Role to compute for: validator or nominator")
	flag.IntVar(&s.era, "era", -1, "Era to compute rewards for (-1 = last completed era)")

	flag.StringVar(&s.dataDir, "datadir", "./", "Location of database")
	flag.BoolVar(&s.noCache, "no-cache", false, "Recompute even when a cached result exists")

	flag.BoolVar(&s.serve, "serve", false, "Run the rewards HTTP API instead of a one-shot calculation")
	flag.StringVar(&s.apiAddr, "apiaddr", "127.0.0.1", "Address on which to bind rewards API")
	flag.IntVar(&s.apiPort, "apiport", 8082, "Port on which to bind rewards API")

	flag.BoolVar(&s.logDebug, "debug", false, "Enable debug-level logging")
	flag.BoolVar(&s.logTrace, "trace", false, "Enable trace-level logging")

	printVersion := flag.Bool("version", false, "Show version and exit")

	flag.Parse()

	// Sanity
	if !util.IsValidNetwork(s.networkName) {
		log.Errorf("Unknown network: %s", s.networkName)
		flag.Usage()
		os.Exit(1)
	}

	if !s.serve && s.account == "" && !*printVersion {
		log.Error("An -account is required unless running with -serve")
		flag.Usage()
		os.Exit(1)
	}

	// Handle print version and exit
	if *printVersion {
		log.Printf("calc-reward %s", version)
		log.Printf("https://github.com/nathanwhit/calc-reward-script")
		os.Exit(0)
	}
}
