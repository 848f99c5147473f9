package protocolclient

import "testing"

func TestEncryptDecryptRoundTrip(t *testing.T) {
	creds := Credentials{Username: "alice", Password: "s3cret", Domain: "WORKGROUP"}

	encoded, err := Encrypt("server-secret", creds)
	if err != nil {
		t.Fatalf("Encrypt() error = %v", err)
	}

	got, err := Decrypt("server-secret", encoded)
	if err != nil {
		t.Fatalf("Decrypt() error = %v", err)
	}
	if got != creds {
		t.Fatalf("Decrypt() = %+v, want %+v", got, creds)
	}
}

func TestDecryptRejectsWrongSecret(t *testing.T) {
	encoded, err := Encrypt("server-secret", Credentials{Username: "alice", Password: "s3cret"})
	if err != nil {
		t.Fatalf("Encrypt() error = %v", err)
	}

	if _, err := Decrypt("different-secret", encoded); err == nil {
		t.Fatal("Decrypt() succeeded with wrong secret, want error")
	}
}

func TestEncryptIsNotDeterministic(t *testing.T) {
	creds := Credentials{Username: "alice", Password: "s3cret"}

	a, err := Encrypt("server-secret", creds)
	if err != nil {
		t.Fatalf("Encrypt() error = %v", err)
	}
	b, err := Encrypt("server-secret", creds)
	if err != nil {
		t.Fatalf("Encrypt() error = %v", err)
	}
	if a == b {
		t.Fatal("Encrypt() produced identical ciphertext across calls, want distinct nonces")
	}
}
