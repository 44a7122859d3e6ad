// README: Operator CLI to sign, inspect and validate QR payload text offline.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/heinNell/MobileOrderTracker-sub002/internal/config"
	"github.com/heinNell/MobileOrderTracker-sub002/internal/qrcode"
)

const usage = `usage: qrtool <command> [flags]

commands:
  sign      build a signed payload for an order
  inspect   decode payload text without verifying it
  validate  run the full validation pipeline against a tenant

The signing secret is read from QR_CODE_SECRET.`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(2)
	}
	var err error
	switch os.Args[1] {
	case "sign":
		err = runSign(os.Args[2:], os.Stdout)
	case "inspect":
		err = runInspect(os.Args[2:], os.Stdin, os.Stdout)
	case "validate":
		err = runValidate(os.Args[2:], os.Stdin, os.Stdout)
	default:
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(2)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "qrtool:", err)
		os.Exit(1)
	}
}

func qrConfig(fs *flag.FlagSet, args []string) (config.QR, error) {
	cfg := config.DefaultQR()
	cfg.Secret = os.Getenv("QR_CODE_SECRET")
	fs.DurationVar(&cfg.DefaultExpiration, "expiration", cfg.DefaultExpiration, "default expiration window")
	fs.DurationVar(&cfg.MaxSkew, "max-skew", cfg.MaxSkew, "allowed clock skew")
	if err := fs.Parse(args); err != nil {
		return config.QR{}, err
	}
	return cfg, cfg.Validate()
}

func runSign(args []string, out io.Writer) error {
	fs := flag.NewFlagSet("sign", flag.ContinueOnError)
	orderID := fs.String("order", "", "order id")
	tenantID := fs.String("tenant", "", "tenant id")
	number := fs.String("number", "", "order number")
	pretty := fs.Bool("json", false, "print the payload as JSON as well")
	cfg, err := qrConfig(fs, args)
	if err != nil {
		return err
	}
	signer, err := qrcode.NewLocalSigner(cfg.Secret)
	if err != nil {
		return err
	}
	p, err := qrcode.NewBuilder(cfg, signer).CreatePayload(context.Background(), *orderID, *tenantID, qrcode.Options{OrderNumber: *number})
	if err != nil {
		return err
	}
	if *pretty {
		if err := printJSON(out, p); err != nil {
			return err
		}
	}
	_, err = fmt.Fprintln(out, qrcode.Serialize(p))
	return err
}

func runInspect(args []string, in io.Reader, out io.Writer) error {
	fs := flag.NewFlagSet("inspect", flag.ContinueOnError)
	if err := fs.Parse(args); err != nil {
		return err
	}
	raw, err := payloadText(fs, in)
	if err != nil {
		return err
	}
	p, ok := qrcode.Parse(raw)
	if !ok {
		return qrcode.ErrUnparseable
	}
	if err := printJSON(out, p); err != nil {
		return err
	}
	exp := time.UnixMilli(p.EffectiveExpiration(config.DefaultQR().DefaultExpiration.Milliseconds())).UTC()
	_, err = fmt.Fprintf(out, "issued:  %s\nexpires: %s\n", time.UnixMilli(p.Timestamp).UTC().Format(time.RFC3339), exp.Format(time.RFC3339))
	return err
}

func runValidate(args []string, in io.Reader, out io.Writer) error {
	fs := flag.NewFlagSet("validate", flag.ContinueOnError)
	tenantID := fs.String("tenant", "", "expected tenant id")
	cfg, err := qrConfig(fs, args)
	if err != nil {
		return err
	}
	raw, err := payloadText(fs, in)
	if err != nil {
		return err
	}
	res := qrcode.NewValidator(cfg).Validate(raw, *tenantID)
	if err := printJSON(out, res); err != nil {
		return err
	}
	if !res.IsValid {
		return fmt.Errorf("rejected at %s: %s", res.Stage, res.Error)
	}
	return nil
}

// payloadText takes the first positional argument, or stdin when there is none.
func payloadText(fs *flag.FlagSet, in io.Reader) (string, error) {
	if fs.NArg() > 0 {
		return fs.Arg(0), nil
	}
	b, err := io.ReadAll(in)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(b)), nil
}

func printJSON(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
