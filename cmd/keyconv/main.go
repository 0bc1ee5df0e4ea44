// keyconv converts a keypair file to the base58 private key accepted by
// browser wallets, and back.
//
//	keyconv [-wallet dev-wallet.json] to-base58
//	keyconv [-out wallet.json] to-bytes
package main

import (
	"bufio"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"

	"sol-wallet-tools/internal/config"
	"sol-wallet-tools/internal/wallet"
)

const usage = `Invalid command. Use "to-base58" or "to-bytes"`

func main() {
	var (
		cfgPath = flag.String("config", "config.yml", "Path to YAML config file")
		walletP = flag.String("wallet", "", `Keypair file for to-base58 ("-" reads a byte array from stdin)`)
		out     = flag.String("out", "", "Write the decoded keypair to this file (to-bytes)")
		force   = flag.Bool("force", false, "Overwrite -out if it exists")
	)
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	if *walletP == "" {
		*walletP = cfg.Wallet.Path
	}

	switch flag.Arg(0) {
	case "to-base58":
		err = toBase58(os.Stdin, os.Stdout, *walletP)
	case "to-bytes":
		err = toBytes(os.Stdin, os.Stdout, *out, *force)
	default:
		fmt.Println(usage)
		return
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
}

func toBase58(in io.Reader, out io.Writer, path string) error {
	var kp wallet.Keypair
	var err error
	if path == "-" {
		fmt.Fprintln(os.Stderr, "Input your private key as a JSON byte array (e.g. [12,34,...]):")
		line, rerr := readLine(in)
		if rerr != nil {
			return rerr
		}
		kp, err = wallet.ParseKeypairJSON([]byte(line))
	} else {
		kp, err = wallet.LoadKeypair(path)
	}
	if err != nil {
		return err
	}
	fmt.Fprintln(out, "Your Phantom-compatible private key:", wallet.ToBase58(kp))
	return nil
}

func toBytes(in io.Reader, out io.Writer, outPath string, force bool) error {
	fmt.Fprint(os.Stderr, "Enter your base58 private key:")
	s, err := readSecret(in)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return err
	}
	b, err := wallet.DecodeBase58(s)
	if errors.Is(err, wallet.ErrEmptyKey) {
		fmt.Fprintln(out, "No key entered.")
		return nil
	}
	if err != nil {
		return err
	}
	fmt.Fprintln(out, "Your key in byte array format:", wallet.FormatBytes(b))

	if outPath == "" {
		return nil
	}
	kp, err := wallet.KeypairFromBase58(s)
	if err != nil {
		return fmt.Errorf("not a keypair, %s not written: %w", outPath, err)
	}
	if err := wallet.SaveKeypair(outPath, kp, force); err != nil {
		return err
	}
	fmt.Fprintf(out, "Wrote %s (%s)\n", outPath, kp.PublicKey())
	return nil
}

// readSecret disables echo when in is a terminal.
func readSecret(in io.Reader) (string, error) {
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		b, err := term.ReadPassword(int(f.Fd()))
		if err != nil {
			return "", fmt.Errorf("read key: %w", err)
		}
		return strings.TrimSpace(string(b)), nil
	}
	return readLine(in)
}

func readLine(in io.Reader) (string, error) {
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("read input: %w", err)
	}
	return strings.TrimSpace(line), nil
}
