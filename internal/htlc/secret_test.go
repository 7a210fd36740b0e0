package htlc

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"testing"
)

func TestGenerateSecret(t *testing.T) {
	s1, err := GenerateSecret()
	if err != nil {
		t.Fatalf("GenerateSecret() error = %v", err)
	}
	if len(s1) != SecretSize {
		t.Errorf("secret length = %d, want %d", len(s1), SecretSize)
	}

	s2, err := GenerateSecret()
	if err != nil {
		t.Fatalf("GenerateSecret() error = %v", err)
	}
	if bytes.Equal(s1, s2) {
		t.Error("two generated secrets should not be equal")
	}
}

func TestComputeHashlockSHA256(t *testing.T) {
	secret := bytes.Repeat([]byte{0xab}, SecretSize)

	hashlock, err := ComputeHashlock(HashSHA256, secret)
	if err != nil {
		t.Fatalf("ComputeHashlock() error = %v", err)
	}

	want := sha256.Sum256(secret)
	if hashlock != want {
		t.Errorf("hashlock = %x, want %x", hashlock, want)
	}
}

func TestComputeHashlockKeccak256(t *testing.T) {
	// keccak256 of the empty string, a well-known vector.
	want, _ := hex.DecodeString("c5d2460186f7233c927e7db2dcc703c0e500b653ca82273b7bfad8045d85a470")

	hashlock, err := ComputeHashlock(HashKeccak256, nil)
	if err != nil {
		t.Fatalf("ComputeHashlock() error = %v", err)
	}
	if !bytes.Equal(hashlock[:], want) {
		t.Errorf("keccak256(\"\") = %x, want %x", hashlock, want)
	}
}

func TestComputeHashlockAlgosDiffer(t *testing.T) {
	secret := bytes.Repeat([]byte{0x01}, SecretSize)

	sha, _ := ComputeHashlock(HashSHA256, secret)
	keccak, _ := ComputeHashlock(HashKeccak256, secret)
	if sha == keccak {
		t.Error("sha256 and keccak256 hashlocks should differ for the same secret")
	}
}

func TestComputeHashlockUnknownAlgo(t *testing.T) {
	if _, err := ComputeHashlock("md5", []byte("x")); err == nil {
		t.Error("ComputeHashlock(md5) should fail")
	}
}

func TestVerifySecret(t *testing.T) {
	secret, err := GenerateSecret()
	if err != nil {
		t.Fatal(err)
	}

	for _, algo := range []HashAlgo{HashSHA256, HashKeccak256} {
		t.Run(string(algo), func(t *testing.T) {
			hashlock, err := ComputeHashlock(algo, secret)
			if err != nil {
				t.Fatal(err)
			}

			ok, err := VerifySecret(algo, secret, hashlock)
			if err != nil {
				t.Fatalf("VerifySecret() error = %v", err)
			}
			if !ok {
				t.Error("correct secret should verify")
			}

			wrong := append([]byte(nil), secret...)
			wrong[0] ^= 0xff
			ok, err = VerifySecret(algo, wrong, hashlock)
			if err != nil {
				t.Fatalf("VerifySecret() error = %v", err)
			}
			if ok {
				t.Error("wrong secret should not verify")
			}
		})
	}
}
