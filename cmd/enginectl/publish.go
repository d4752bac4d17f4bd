package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/radixcore/engine/internal/bnum"
	"github.com/radixcore/engine/internal/executor"
)

func newPublishCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "publish [code.wasm]",
		Short: "Validate, instrument, and store a Wasm package",
		Args:  cobra.ExactArgs(1),
		RunE:  runPublish,
	}

	cmd.Flags().String("home", defaultHome(), "engine home directory")
	cmd.Flags().Uint64("nonce", 0, "transaction nonce")
	cmd.Flags().String("fee", "10", "fee amount to lock from the faucet")

	return cmd
}

func runPublish(cmd *cobra.Command, args []string) error {
	homeDir, _ := cmd.Flags().GetString("home")
	nonce, _ := cmd.Flags().GetUint64("nonce")
	feeStr, _ := cmd.Flags().GetString("fee")

	code, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("read code: %w", err)
	}
	feeAmount, err := bnum.ParseDecimal(feeStr)
	if err != nil {
		return fmt.Errorf("parse fee: %w", err)
	}

	addrs, err := readAddresses(homeDir)
	if err != nil {
		return err
	}
	faucet, err := parseComponent(addrs.FaucetComponent)
	if err != nil {
		return err
	}

	env, err := openEngine(homeDir)
	if err != nil {
		return err
	}
	defer env.close()

	tx := &executor.Transaction{
		Header: executor.Header{
			Version:       executor.TransactionVersion,
			NetworkID:     env.cfg.ChainID,
			StartEpoch:    0,
			EndEpoch:      1_000_000,
			Nonce:         nonce,
			CostUnitLimit: env.cfg.Fee.CostUnitLimit,
		},
		Instructions: []executor.Instruction{
			executor.LockFee(faucet, feeAmount),
			executor.PublishPackage(code, map[string][]byte{}),
		},
	}

	receipt := env.executor.Execute(tx)
	printReceipt(receipt)
	if receipt.Status != executor.StatusSucceeded {
		os.Exit(1)
	}
	return nil
}
