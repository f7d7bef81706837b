package redisx

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	otpTTL       = 5 * time.Minute
	rateLimitTTL = 60 * time.Second
)

// OTPStore keeps one-time codes and a per-address request rate limit.
// Keys: otp:<email> and otp:ratelimit:<email>.
type OTPStore struct {
	rdb *redis.Client
}

func NewOTPStore(rdb *redis.Client) *OTPStore {
	return &OTPStore{rdb: rdb}
}

// Issue generates a 6-digit code for email unless the address is still
// rate-limited. The second return is false when the caller must wait.
func (s *OTPStore) Issue(ctx context.Context, email string) (string, bool, error) {
	limited, err := s.rdb.Exists(ctx, rateLimitKey(email)).Result()
	if err != nil {
		return "", false, err
	}
	if limited > 0 {
		return "", false, nil
	}

	code, err := sixDigits()
	if err != nil {
		return "", false, err
	}
	if err := s.rdb.Set(ctx, otpKey(email), code, otpTTL).Err(); err != nil {
		return "", false, err
	}
	if err := s.rdb.Set(ctx, rateLimitKey(email), "true", rateLimitTTL).Err(); err != nil {
		return "", false, err
	}
	return code, true, nil
}

// Verify compares the submitted code and consumes it on success.
func (s *OTPStore) Verify(ctx context.Context, email, code string) (bool, error) {
	stored, err := s.rdb.Get(ctx, otpKey(email)).Result()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if stored != code {
		return false, nil
	}
	_ = s.rdb.Del(ctx, otpKey(email)).Err()
	return true, nil
}

func otpKey(email string) string       { return "otp:" + email }
func rateLimitKey(email string) string { return "otp:ratelimit:" + email }

func sixDigits() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()+100000), nil
}
