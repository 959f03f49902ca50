package usecase_test

import (
	"testing"
	"time"

	"github.com/ErlanBelekov/wa-scheduler/internal/usecase"
	"github.com/golang-jwt/jwt/v5"
)

var testKey = []byte("test-secret-that-is-at-least-32-bytes")

func TestTokenIssuer_Issue(t *testing.T) {
	signed, err := usecase.NewTokenIssuer(testKey, time.Hour).Issue("operator")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	claims := jwt.MapClaims{}
	tok, err := jwt.ParseWithClaims(signed, claims, func(*jwt.Token) (any, error) { return testKey, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !tok.Valid {
		t.Fatalf("parse: %v", err)
	}
	sub, _ := claims.GetSubject()
	if sub != "operator" {
		t.Errorf("sub = %q", sub)
	}
	exp, _ := claims.GetExpirationTime()
	if d := time.Until(exp.Time); d < 59*time.Minute || d > time.Hour {
		t.Errorf("exp in %v", d)
	}
}

func TestTokenIssuer_RequiresOperator(t *testing.T) {
	if _, err := usecase.NewTokenIssuer(testKey, 0).Issue(""); err == nil {
		t.Fatal("expected error for empty operator")
	}
}
