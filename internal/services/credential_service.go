// internal/services/credential_service.go
package services

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"

	"github.com/levaja/levaja-backend/internal/gateway"
	"github.com/levaja/levaja-backend/internal/models"
	"github.com/levaja/levaja-backend/internal/repository"
	"github.com/levaja/levaja-backend/internal/utils"
)

// OAuthGateway is the slice of the gateway client the credential service
// consumes.
type OAuthGateway interface {
	AuthorizationURL(state string) string
	ExchangeCode(ctx context.Context, code string) (*gateway.TokenResponse, error)
	RefreshToken(ctx context.Context, refreshToken string) (*gateway.TokenResponse, error)
	CurrentUser(ctx context.Context, accessToken string) (*gateway.UserInfo, error)
}

// CredentialService owns per-establishment OAuth credentials: it drives the
// authorization-code flow, refresh, liveness checks, and AES-GCM encryption
// of tokens at rest. Concurrent refreshes for the same establishment are
// collapsed through a singleflight group.
type CredentialService struct {
	establishments repository.EstablishmentRepository
	gateway        OAuthGateway
	key            []byte
	refreshGroup   singleflight.Group
}

type ConnectionStatus struct {
	Connected   bool   `json:"connected"`
	TokenValid  bool   `json:"token_valid"`
	CollectorID int64  `json:"collector_id,omitempty"`
	Name        string `json:"name"`
}

func NewCredentialService(establishments repository.EstablishmentRepository, gw OAuthGateway, key []byte) *CredentialService {
	return &CredentialService{
		establishments: establishments,
		gateway:        gw,
		key:            key,
	}
}

// GenerateAuthorizationURL issues the consent URL. The state binds the later
// callback to the establishment and doubles as CSRF protection; its nonce is
// persisted and compared on callback.
func (s *CredentialService) GenerateAuthorizationURL(ctx context.Context, establishmentID uuid.UUID) (string, error) {
	est, err := s.establishments.ByID(ctx, establishmentID)
	if err != nil {
		return "", err
	}

	nonce, err := utils.GenerateStateNonce()
	if err != nil {
		return "", fmt.Errorf("failed to generate state nonce: %w", err)
	}

	est.OAuthState = nonce
	if err := s.establishments.Save(ctx, est); err != nil {
		return "", err
	}

	state := est.ID.String() + ":" + nonce
	return s.gateway.AuthorizationURL(state), nil
}

// HandleCallback verifies the state, exchanges the code, and stores the
// encrypted token pair. Any non-2xx exchange response is non-retryable.
func (s *CredentialService) HandleCallback(ctx context.Context, code, state string) (*models.Establishment, error) {
	establishmentID, nonce, err := parseState(state)
	if err != nil {
		return nil, err
	}

	est, err := s.establishments.ByID(ctx, establishmentID)
	if err != nil {
		return nil, err
	}
	if est.OAuthState == "" || est.OAuthState != nonce {
		return nil, ErrInvalidOAuthState
	}

	tokens, err := s.gateway.ExchangeCode(ctx, code)
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"establishment_id": est.ID,
			"error":            err.Error(),
		}).Warn("OAuth code exchange failed")
		return nil, fmt.Errorf("%w: %v", ErrOAuthExchangeFailed, err)
	}

	if err := s.storeTokens(ctx, est, tokens); err != nil {
		return nil, err
	}
	return est, nil
}

// RefreshAccessToken refreshes the stored token pair. If the gateway does not
// rotate the refresh token, the prior one is retained. Calls for the same
// establishment are single-flighted; losers of the race receive the winner's
// result instead of invalidating it.
func (s *CredentialService) RefreshAccessToken(ctx context.Context, establishmentID uuid.UUID) error {
	_, err, _ := s.refreshGroup.Do(establishmentID.String(), func() (interface{}, error) {
		est, err := s.establishments.ByID(ctx, establishmentID)
		if err != nil {
			return nil, err
		}
		if !est.Connected || est.EncryptedRefreshToken == "" {
			return nil, ErrEstablishmentNotConnected
		}

		refreshToken, err := s.Decrypt(est.EncryptedRefreshToken)
		if err != nil {
			return nil, err
		}

		tokens, err := s.gateway.RefreshToken(ctx, refreshToken)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrTokenInvalid, err)
		}
		if tokens.RefreshToken == "" {
			tokens.RefreshToken = refreshToken
		}

		return nil, s.storeTokens(ctx, est, tokens)
	})
	return err
}

// AccessToken returns the decrypted access token, refreshing first when the
// stored one is expired.
func (s *CredentialService) AccessToken(ctx context.Context, establishmentID uuid.UUID) (string, error) {
	est, err := s.establishments.ByID(ctx, establishmentID)
	if err != nil {
		return "", err
	}
	if !est.Connected || est.EncryptedAccessToken == "" {
		return "", ErrEstablishmentNotConnected
	}

	if est.TokenExpiresAt != nil && time.Now().After(*est.TokenExpiresAt) {
		if err := s.RefreshAccessToken(ctx, establishmentID); err != nil {
			return "", err
		}
		if est, err = s.establishments.ByID(ctx, establishmentID); err != nil {
			return "", err
		}
	}

	return s.Decrypt(est.EncryptedAccessToken)
}

// ValidateToken checks token liveness against the gateway. Network failure
// counts as invalid: the check fails closed.
func (s *CredentialService) ValidateToken(ctx context.Context, accessToken string) bool {
	if accessToken == "" {
		return false
	}
	if _, err := s.gateway.CurrentUser(ctx, accessToken); err != nil {
		return false
	}
	return true
}

// Status reports the connection state without exposing token material.
func (s *CredentialService) Status(ctx context.Context, establishmentID uuid.UUID) (*ConnectionStatus, error) {
	est, err := s.establishments.ByID(ctx, establishmentID)
	if err != nil {
		return nil, err
	}

	status := &ConnectionStatus{
		Connected:   est.Connected,
		CollectorID: est.CollectorID,
		Name:        est.Name,
	}
	if est.Connected && est.EncryptedAccessToken != "" {
		if token, err := s.Decrypt(est.EncryptedAccessToken); err == nil {
			status.TokenValid = s.ValidateToken(ctx, token)
		}
	}
	return status, nil
}

// Disconnect drops the stored credentials and marks the seller unavailable
// for split payments.
func (s *CredentialService) Disconnect(ctx context.Context, establishmentID uuid.UUID) error {
	est, err := s.establishments.ByID(ctx, establishmentID)
	if err != nil {
		return err
	}

	est.EncryptedAccessToken = ""
	est.EncryptedRefreshToken = ""
	est.TokenExpiresAt = nil
	est.OAuthState = ""
	est.Connected = false

	if err := s.establishments.Save(ctx, est); err != nil {
		return err
	}

	logrus.WithField("establishment_id", est.ID).Info("Establishment disconnected from gateway")
	return nil
}

// Encrypt seals a value with AES-GCM under a fresh random nonce. Output is
// base64(nonce) + ":" + base64(ciphertext) as a single storable string.
func (s *CredentialService) Encrypt(value string) (string, error) {
	block, err := aes.NewCipher(s.key)
	if err != nil {
		return "", err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", err
	}

	ciphertext := gcm.Seal(nil, nonce, []byte(value), nil)
	return base64.StdEncoding.EncodeToString(nonce) + ":" + base64.StdEncoding.EncodeToString(ciphertext), nil
}

// Decrypt opens a value produced by Encrypt. Tampered ciphertext fails the
// GCM tag check.
func (s *CredentialService) Decrypt(stored string) (string, error) {
	parts := strings.SplitN(stored, ":", 2)
	if len(parts) != 2 {
		return "", errors.New("malformed encrypted value")
	}

	nonce, err := base64.StdEncoding.DecodeString(parts[0])
	if err != nil {
		return "", fmt.Errorf("malformed nonce: %w", err)
	}
	ciphertext, err := base64.StdEncoding.DecodeString(parts[1])
	if err != nil {
		return "", fmt.Errorf("malformed ciphertext: %w", err)
	}

	block, err := aes.NewCipher(s.key)
	if err != nil {
		return "", err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", err
	}
	if len(nonce) != gcm.NonceSize() {
		return "", errors.New("malformed encrypted value")
	}

	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", fmt.Errorf("failed to decrypt value: %w", err)
	}
	return string(plaintext), nil
}

func (s *CredentialService) storeTokens(ctx context.Context, est *models.Establishment, tokens *gateway.TokenResponse) error {
	encAccess, err := s.Encrypt(tokens.AccessToken)
	if err != nil {
		return fmt.Errorf("failed to encrypt access token: %w", err)
	}
	encRefresh, err := s.Encrypt(tokens.RefreshToken)
	if err != nil {
		return fmt.Errorf("failed to encrypt refresh token: %w", err)
	}

	est.EncryptedAccessToken = encAccess
	est.EncryptedRefreshToken = encRefresh
	if tokens.CollectorID != 0 {
		est.CollectorID = tokens.CollectorID
	}
	if tokens.ExpiresIn > 0 {
		expires := time.Now().Add(time.Duration(tokens.ExpiresIn) * time.Second)
		est.TokenExpiresAt = &expires
	}
	est.OAuthState = ""
	est.Connected = true

	if err := s.establishments.Save(ctx, est); err != nil {
		return err
	}

	logrus.WithFields(logrus.Fields{
		"establishment_id": est.ID,
		"collector_id":     est.CollectorID,
	}).Info("Establishment gateway credentials stored")
	return nil
}

func parseState(state string) (uuid.UUID, string, error) {
	parts := strings.SplitN(state, ":", 2)
	if len(parts) != 2 || parts[1] == "" {
		return uuid.Nil, "", ErrInvalidOAuthState
	}
	id, err := uuid.Parse(parts[0])
	if err != nil {
		return uuid.Nil, "", ErrInvalidOAuthState
	}
	return id, parts[1], nil
}
