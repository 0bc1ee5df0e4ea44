package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"go.uber.org/zap"

	"sol-wallet-tools/internal/app"
	"sol-wallet-tools/internal/enroll"
	"sol-wallet-tools/internal/wallet"
)

func main() {
	var (
		cfgPath = flag.String("config", "config.yml", "Path to YAML config file")
		walletP = flag.String("wallet", "", "Enrollment keypair file (defaults to wallet.enroll_path)")
		github  = flag.String("github", "", "GitHub handle (defaults to enroll.github)")
		track   = flag.String("track", "", "Completion to submit: ts or rs (defaults to enroll.track)")
	)
	flag.Parse()

	env, err := app.Setup(*cfgPath, "enroll")
	if err != nil {
		log.Fatalf("%v", err)
	}
	ctx, cancel := app.Context()
	defer cancel()

	if err := run(ctx, env, *walletP, *github, *track); err != nil {
		env.Log.Error("enrollment failed", zap.Error(err))
		env.Close(context.Background())
		cancel()
		os.Exit(1)
	}
	env.Close(context.Background())
}

func run(ctx context.Context, env *app.Env, walletPath, github, track string) error {
	cfg := env.Config.Enroll
	if walletPath == "" {
		walletPath = env.Config.Wallet.EnrollPath
	}
	if github == "" {
		github = cfg.GitHub
	}
	if track == "" {
		track = cfg.Track
	}
	if track != string(enroll.TrackTS) && track != string(enroll.TrackRS) {
		return fmt.Errorf("-track: unsupported value %q", track)
	}

	user, err := wallet.LoadKeypair(walletPath)
	if err != nil {
		return err
	}
	prog, err := enroll.ProgramFromConfig(cfg)
	if err != nil {
		return err
	}
	fmt.Printf("Using wallet: %s\n", user.PublicKey())

	r := &enroll.Runner{
		Chain:     env.Chain,
		Program:   prog,
		StepDelay: cfg.StepDelay,
		StatePath: cfg.StatePath,
		Metrics:   env.Metrics,
		Log:       env.Log,
	}
	out, err := r.Run(ctx, user, github, enroll.Track(track))
	if err != nil {
		return err
	}

	if out.AlreadyInitialized {
		fmt.Println("Account already initialized, continued to submit.")
	} else {
		fmt.Printf("Initialize Success! TX: %s\n", env.Explorer(out.InitSignature))
	}
	if out.AlreadyCompleted {
		fmt.Printf("Submission for %q already completed!\n", track)
		return nil
	}
	fmt.Printf("Submit Success! TX: %s\n", env.Explorer(out.SubmitSignature))
	fmt.Printf("Your NFT was minted at: %s\n", out.Mint)
	return nil
}
