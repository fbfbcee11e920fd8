// Package auth issues and verifies personal access tokens. A token's
// plaintext is "<token id>|<random>"; only the SHA-256 digest of the random
// component is persisted, so a database leak exposes nothing usable.
package auth

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"strings"

	"github.com/google/uuid"
	"github.com/theforge/forge/internal/models"
	"github.com/theforge/forge/pkg/logger"
	storage "github.com/theforge/forge/pkg/redis"
	"github.com/theforge/forge/pkg/utils"
	"gorm.io/gorm"
)

// Options carries the shared dependencies of the auth handlers and
// middleware.
type Options struct {
	DB      *gorm.DB
	Rclient *storage.RedisClient
	Logger  *logger.Logger
}

const tokenEntropy = 48

// IssuedToken pairs a persisted access token with its one-time plaintext.
type IssuedToken struct {
	Token     *models.AccessToken
	PlainText string
}

// NewToken mints a personal access token for the user. Abilities are
// normalized against the fixed vocabulary before storage; the plaintext is
// returned exactly once and cannot be recovered afterwards.
func NewToken(ctx context.Context, db *gorm.DB, userID uuid.UUID, name string, abilities []string) (*IssuedToken, error) {
	random, err := utils.GenerateRandomToken(tokenEntropy)
	if err != nil {
		return nil, utils.WrapError(err, utils.ErrInternalServerError.Status, "Failed to generate token")
	}

	normalized, err := json.Marshal(models.NormalizeAbilities(abilities))
	if err != nil {
		return nil, utils.WrapError(err, utils.ErrInternalServerError.Status, "Failed to encode abilities")
	}

	token := &models.AccessToken{
		UserID:    userID,
		Name:      name,
		TokenHash: utils.HashToken(random),
		Abilities: string(normalized),
	}
	if err := db.WithContext(ctx).Create(token).Error; err != nil {
		return nil, utils.WrapError(err, utils.ErrInternalServerError.Status, "Failed to store token")
	}

	return &IssuedToken{
		Token:     token,
		PlainText: token.ID.String() + "|" + random,
	}, nil
}

// FindToken resolves a presented plaintext back to its stored record using a
// constant-time digest comparison. Unknown or malformed tokens return nil.
func FindToken(ctx context.Context, db *gorm.DB, plaintext string) (*models.AccessToken, error) {
	id, random, ok := strings.Cut(plaintext, "|")
	if !ok || random == "" {
		return nil, nil
	}
	tokenID, err := uuid.Parse(id)
	if err != nil {
		return nil, nil
	}

	var token models.AccessToken
	err = db.WithContext(ctx).Preload("User").Preload("User.Role").First(&token, "id = ?", tokenID).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, utils.WrapError(err, utils.ErrInternalServerError.Status, "Failed to look up token")
	}

	digest := utils.HashToken(random)
	if subtle.ConstantTimeCompare([]byte(digest), []byte(token.TokenHash)) != 1 {
		return nil, nil
	}
	return &token, nil
}

// Abilities decodes the stored ability list of a token.
func Abilities(token *models.AccessToken) []string {
	var abilities []string
	if err := json.Unmarshal([]byte(token.Abilities), &abilities); err != nil {
		return []string{models.AbilityRead}
	}
	return abilities
}

// Can reports whether the token grants the given ability.
func Can(token *models.AccessToken, ability string) bool {
	return utils.Contains(Abilities(token), ability)
}

// RevokeToken deletes one token belonging to the user.
func RevokeToken(ctx context.Context, db *gorm.DB, userID, tokenID uuid.UUID) error {
	res := db.WithContext(ctx).Where("id = ? AND user_id = ?", tokenID, userID).Delete(&models.AccessToken{})
	if res.Error != nil {
		return utils.WrapError(res.Error, utils.ErrInternalServerError.Status, "Failed to revoke token")
	}
	if res.RowsAffected == 0 {
		return utils.NewError(utils.ErrNotFound.Status, "Token not found")
	}
	return nil
}

// RevokeAllTokens deletes every token belonging to the user.
func RevokeAllTokens(ctx context.Context, db *gorm.DB, userID uuid.UUID) error {
	err := db.WithContext(ctx).Where("user_id = ?", userID).Delete(&models.AccessToken{}).Error
	if err != nil {
		return utils.WrapError(err, utils.ErrInternalServerError.Status, "Failed to revoke tokens")
	}
	return nil
}
