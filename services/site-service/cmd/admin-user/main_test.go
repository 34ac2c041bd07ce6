package main

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/seiflawfirm/site/libs/auth"
)

type fakeAdmins struct {
	username, email, hash, role string
	existing                    bool
}

func (f *fakeAdmins) Upsert(_ context.Context, username, email, hash, role string) (string, bool, error) {
	f.username, f.email, f.hash, f.role = username, email, hash, role
	return "admin-1", !f.existing, nil
}

func TestRunCreatesAdmin(t *testing.T) {
	store := &fakeAdmins{}
	var out bytes.Buffer
	err := run(context.Background(), store, []string{"-username", "office@seiflawfirm.com", "-password", "correct-horse"}, &out)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if store.email != "office@seiflawfirm.com" || store.role != "admin" {
		t.Fatalf("upsert args: %+v", store)
	}
	if err := auth.VerifyPassword(store.hash, "correct-horse"); err != nil {
		t.Fatalf("hash does not verify: %v", err)
	}
	if !strings.Contains(out.String(), "created admin office@seiflawfirm.com") {
		t.Fatalf("output = %q", out.String())
	}
}

func TestRunResetsExisting(t *testing.T) {
	store := &fakeAdmins{existing: true}
	var out bytes.Buffer
	err := run(context.Background(), store, []string{"-username", "ayoub", "-email", "ayoub@seiflawfirm.com", "-password", "new-password"}, &out)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if !strings.Contains(out.String(), "reset password for admin ayoub") {
		t.Fatalf("output = %q", out.String())
	}
}

func TestRunValidates(t *testing.T) {
	cases := [][]string{
		{"-password", "long-enough"},
		{"-username", "ayoub", "-password", "short"},
		{"-username", "ayoub", "-password", "long-enough"},
	}
	for _, args := range cases {
		if err := run(context.Background(), &fakeAdmins{}, args, &bytes.Buffer{}); err == nil {
			t.Fatalf("expected error for %v", args)
		}
	}
}
