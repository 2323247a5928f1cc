package commands

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/guilded-university/tokenvault/internal/app"
	"github.com/guilded-university/tokenvault/internal/keymaterial"
)

func (r *runner) keyringCommand() *cli.Command {
	return &cli.Command{
		Name:  "keyring",
		Usage: "manage the encryption key and nonce in the OS keyring",
		Commands: []*cli.Command{
			{
				Name:   "set",
				Usage:  "store the key and nonce in the OS keyring",
				Action: r.keyringSetAction,
			},
			{
				Name:   "delete",
				Usage:  "remove the key and nonce from the OS keyring",
				Action: r.keyringDeleteAction,
			},
			{
				Name:   "status",
				Usage:  "report whether a valid key and nonce are stored",
				Action: r.keyringStatusAction,
			},
		},
	}
}

// keyringSource opens the keyring service named in the configuration, falling
// back to the default service when another key source is active.
func (r *runner) keyringSource(ctx context.Context, cmd *cli.Command) (*app.Config, *keymaterial.KeyringSource, func(), error) {
	cfg, cleanup, err := r.setup(ctx, cmd)
	if err != nil {
		return nil, nil, nil, err
	}

	service := cfg.Encryption.KeyringService
	if service == "" {
		service = app.DefaultConfigKeyringService
	}

	src, err := keymaterial.NewKeyringSource(service)
	if err != nil {
		cleanup()
		return nil, nil, nil, err
	}

	return cfg, src, cleanup, nil
}

func (r *runner) keyringSetAction(ctx context.Context, cmd *cli.Command) error {
	cfg, src, cleanup, err := r.keyringSource(ctx, cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	p := newPrompter(r.stdin, os.Stderr)
	key, err := p.secret("Key (32 bytes)")
	if err != nil {
		return err
	}
	nonce, err := p.secret("Nonce (24 bytes)")
	if err != nil {
		return err
	}

	km, err := keymaterial.Parse(key, nonce)
	if err != nil {
		return err
	}
	km.Destroy()

	if err := src.Set(cfg.Encryption.KeyName, key); err != nil {
		return fmt.Errorf("failed to save key to keyring: %w", err)
	}
	if err := src.Set(cfg.Encryption.NonceName, nonce); err != nil {
		return fmt.Errorf("failed to save nonce to keyring: %w", err)
	}

	_, err = fmt.Fprintf(r.stdout, "Key and nonce saved to %s\n", src)
	return err
}

func (r *runner) keyringDeleteAction(ctx context.Context, cmd *cli.Command) error {
	cfg, src, cleanup, err := r.keyringSource(ctx, cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	if err := errors.Join(
		src.Delete(cfg.Encryption.KeyName),
		src.Delete(cfg.Encryption.NonceName),
	); err != nil {
		return fmt.Errorf("failed to remove key material from keyring: %w", err)
	}

	_, err = fmt.Fprintf(r.stdout, "Key and nonce removed from %s\n", src)
	return err
}

func (r *runner) keyringStatusAction(ctx context.Context, cmd *cli.Command) error {
	cfg, src, cleanup, err := r.keyringSource(ctx, cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	provider, err := keymaterial.NewProvider(src,
		keymaterial.WithKeyName(cfg.Encryption.KeyName),
		keymaterial.WithNonceName(cfg.Encryption.NonceName),
	)
	if err != nil {
		return err
	}

	km, err := provider.Resolve()
	if err != nil {
		_, werr := fmt.Fprintf(r.stdout, "Key material: not usable (%s)\n", err)
		return werr
	}
	km.Destroy()

	_, err = fmt.Fprintf(r.stdout, "Key material: stored in %s\n", src)
	return err
}
