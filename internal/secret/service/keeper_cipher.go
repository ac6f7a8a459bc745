package service

import (
	"context"
	"fmt"

	"gocloud.dev/secrets"

	// Register all KMS provider drivers
	_ "gocloud.dev/secrets/awskms"
	_ "gocloud.dev/secrets/azurekeyvault"
	_ "gocloud.dev/secrets/gcpkms"
	_ "gocloud.dev/secrets/hashivault"
	_ "gocloud.dev/secrets/localsecrets"
)

// KeeperCipher implements Cipher with a gocloud.dev secrets.Keeper, so secret
// values stored in SQL are encrypted by a KMS (or a local key in development).
type KeeperCipher struct {
	keeper *secrets.Keeper
}

// OpenKeeperCipher opens a keeper for keyURI.
// Supports: gcpkms://, awskms://, azurekeyvault://, hashivault://, base64key://
func OpenKeeperCipher(ctx context.Context, keyURI string) (*KeeperCipher, error) {
	keeper, err := secrets.OpenKeeper(ctx, keyURI)
	if err != nil {
		return nil, fmt.Errorf("failed to open KMS keeper: %w", err)
	}
	return &KeeperCipher{keeper: keeper}, nil
}

// Encrypt encrypts plaintext with the keeper.
func (k *KeeperCipher) Encrypt(ctx context.Context, plaintext []byte) ([]byte, error) {
	ciphertext, err := k.keeper.Encrypt(ctx, plaintext)
	if err != nil {
		return nil, fmt.Errorf("failed to encrypt secret value: %w", err)
	}
	return ciphertext, nil
}

// Decrypt decrypts ciphertext with the keeper.
func (k *KeeperCipher) Decrypt(ctx context.Context, ciphertext []byte) ([]byte, error) {
	plaintext, err := k.keeper.Decrypt(ctx, ciphertext)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt secret value: %w", err)
	}
	return plaintext, nil
}

// Close releases the keeper.
func (k *KeeperCipher) Close() error {
	return k.keeper.Close()
}
