package auth

import (
	"errors"
	"testing"
	"time"
)

const testUserID = "65f0c0ffee0000000000abcd"

func TestHashAndCheckPassword(t *testing.T) {
	pwd := "s3cr3t-password"
	hash, err := HashPassword(pwd)
	if err != nil {
		t.Fatalf("HashPassword failed: %v", err)
	}

	if err := CheckPassword(hash, pwd); err != nil {
		t.Fatalf("CheckPassword failed when password should match: %v", err)
	}

	if err := CheckPassword(hash, "wrong"); err == nil {
		t.Fatal("CheckPassword succeeded when it should have failed")
	}
}

func TestJWTManager_GenerateAndVerify(t *testing.T) {
	m := NewJWTManager("test-secret", 5*time.Minute)

	token, expiresAt, err := m.GenerateToken(testUserID, "test@uga.edu")
	if err != nil {
		t.Fatalf("GenerateToken failed: %v", err)
	}
	if time.Until(expiresAt) <= 0 {
		t.Fatalf("token already expired at %v", expiresAt)
	}

	claims, err := m.VerifyToken(token)
	if err != nil {
		t.Fatalf("VerifyToken failed: %v", err)
	}

	if claims.Email != "test@uga.edu" {
		t.Fatalf("claims.Email mismatch: got %s", claims.Email)
	}
	if claims.UserID != testUserID {
		t.Fatalf("claims.UserID mismatch: got %s", claims.UserID)
	}
}

func TestJWTManager_NormalizeEmailClaim(t *testing.T) {
	m := NewJWTManager("test-secret", 5*time.Minute)

	token, _, err := m.GenerateToken(testUserID, "User.Case@UGA.EDU")
	if err != nil {
		t.Fatalf("GenerateToken failed: %v", err)
	}

	claims, err := m.VerifyToken(token)
	if err != nil {
		t.Fatalf("VerifyToken failed: %v", err)
	}

	if claims.Email != "user.case@uga.edu" {
		t.Fatalf("expected normalized email in claims, got %s", claims.Email)
	}
}

func TestJWTManager_RejectsForeignAndExpired(t *testing.T) {
	m := NewJWTManager("test-secret", 5*time.Minute)
	other := NewJWTManager("other-secret", 5*time.Minute)

	token, _, err := other.GenerateToken(testUserID, "x@uga.edu")
	if err != nil {
		t.Fatalf("GenerateToken failed: %v", err)
	}
	if _, err := m.VerifyToken(token); err == nil {
		t.Fatal("token signed with a different secret was accepted")
	}

	expired := NewJWTManager("test-secret", -time.Minute)
	token, _, err = expired.GenerateToken(testUserID, "x@uga.edu")
	if err != nil {
		t.Fatalf("GenerateToken failed: %v", err)
	}
	if _, err := m.VerifyToken(token); err == nil {
		t.Fatal("expired token was accepted")
	}

	if _, err := m.VerifyToken("not-a-jwt"); err == nil {
		t.Fatal("garbage token was accepted")
	}
}

func TestJWTManager_Rotation(t *testing.T) {
	// two keys, active kid "k2"
	keys := map[string]string{"k1": "secret-one", "k2": "secret-two"}
	m := NewJWTManagerFromKeys(keys, "k2", 5*time.Minute)

	tkn2, _, err := m.GenerateToken(testUserID, "rot@uga.edu")
	if err != nil {
		t.Fatalf("GenerateToken (k2) failed: %v", err)
	}
	if _, err := m.VerifyToken(tkn2); err != nil {
		t.Fatalf("VerifyToken (k2) failed: %v", err)
	}

	// a token issued while k1 was still active
	mOld := NewJWTManagerFromKeys(keys, "k1", 5*time.Minute)
	tkn1, _, err := mOld.GenerateToken(testUserID, "rot@uga.edu")
	if err != nil {
		t.Fatalf("GenerateToken (k1) failed: %v", err)
	}
	if _, err := m.VerifyToken(tkn1); err != nil {
		t.Fatalf("VerifyToken (old k1) failed: %v", err)
	}

	// once k1 is retired its tokens stop verifying
	retired := NewJWTManagerFromKeys(map[string]string{"k2": "secret-two"}, "k2", 5*time.Minute)
	if _, err := retired.VerifyToken(tkn1); err == nil {
		t.Fatal("token signed by a retired key was accepted")
	}

	broken := NewJWTManagerFromKeys(keys, "k3", 5*time.Minute)
	if _, _, err := broken.GenerateToken(testUserID, "rot@uga.edu"); err == nil {
		t.Fatal("expected error when the active key is missing")
	}
}

func TestSignupValidate(t *testing.T) {
	base := Signup{
		Email:           "Student@UGA.edu",
		Password:        "hunter22",
		ConfirmPassword: "hunter22",
		FirstName:       "Sam",
		LastName:        "Lee",
		University:      "University of Georgia",
	}
	if err := base.Validate(); err != nil {
		t.Fatalf("expected valid signup, got %v", err)
	}

	cases := []struct {
		name   string
		mutate func(*Signup)
		want   error
	}{
		{"gmail", func(s *Signup) { s.Email = "student@gmail.com" }, ErrInstitutionalEmail},
		{"bare edu", func(s *Signup) { s.Email = "student@.edu" }, ErrInstitutionalEmail},
		{"no at", func(s *Signup) { s.Email = "student.edu" }, ErrInstitutionalEmail},
		{"short", func(s *Signup) { s.Password, s.ConfirmPassword = "abc", "abc" }, ErrWeakPassword},
		{"mismatch", func(s *Signup) { s.ConfirmPassword = "hunter23" }, ErrPasswordMismatch},
		{"no name", func(s *Signup) { s.LastName = " " }, ErrMissingName},
	}
	for _, tc := range cases {
		s := base
		tc.mutate(&s)
		err := s.Validate()
		if !errors.Is(err, tc.want) {
			t.Fatalf("%s: expected %v, got %v", tc.name, tc.want, err)
		}
		if !IsValidation(err) {
			t.Fatalf("%s: IsValidation should be true", tc.name)
		}
	}
}
