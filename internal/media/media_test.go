package media

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/shortreel/backend/internal/config"
)

func TestImageKitSignerSign(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	signer := NewImageKitSigner(config.ImageKitConfig{
		PublicKey:   "public_abc",
		PrivateKey:  "private_xyz",
		URLEndpoint: "https://ik.imagekit.io/demo",
	}, 0)
	signer.now = func() time.Time { return now }
	signer.newToken = func() string { return "token-1" }

	creds, err := signer.Sign(context.Background(), UploadRequest{})
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if creds.Token != "token-1" {
		t.Fatalf("unexpected token %q", creds.Token)
	}
	if creds.Expire != now.Add(30*time.Minute).Unix() {
		t.Fatalf("unexpected expire %d", creds.Expire)
	}
	if creds.Signature != imageKitSignature("private_xyz", "token-1", creds.Expire) {
		t.Fatalf("unexpected signature %q", creds.Signature)
	}
	if len(creds.Signature) != 40 {
		t.Fatalf("expected hex sha1 signature got %q", creds.Signature)
	}
	if creds.PublicKey != "public_abc" || creds.URLEndpoint != "https://ik.imagekit.io/demo" {
		t.Fatalf("unexpected public fields %+v", creds)
	}
}

func TestImageKitSignatureKnownValue(t *testing.T) {
	const want = "debc9b78d06e36186c6198a62559c31e2486aa53"
	if got := imageKitSignature("private_xyz", "token-1", 1_700_001_800); got != want {
		t.Fatalf("signature = %s want %s", got, want)
	}
}

func TestImageKitSignerNotConfigured(t *testing.T) {
	signer := NewImageKitSigner(config.ImageKitConfig{PublicKey: "pub"}, time.Minute)
	if _, err := signer.Sign(context.Background(), UploadRequest{}); !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("expected not configured got %v", err)
	}
}

func newTestS3Signer(t *testing.T) *S3Signer {
	t.Helper()
	signer, err := NewS3Signer(context.Background(), config.ObjectStoreConfig{
		Bucket:          "reels",
		Region:          "us-east-1",
		Endpoint:        "http://localhost:9000",
		AccessKeyID:     "AKIDEXAMPLE",
		SecretAccessKey: "secret",
		PublicBaseURL:   "https://cdn.example.com/",
	}, 10*time.Minute)
	if err != nil {
		t.Fatalf("new signer: %v", err)
	}
	signer.newID = func() string { return "fixed-id" }
	return signer
}

func TestS3SignerSign(t *testing.T) {
	signer := newTestS3Signer(t)

	creds, err := signer.Sign(context.Background(), UploadRequest{FileName: "../clips/My Reel.mp4", ContentType: "video/mp4"})
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if creds.Key != "uploads/fixed-id/My Reel.mp4" {
		t.Fatalf("unexpected key %q", creds.Key)
	}
	if creds.FileURL != "https://cdn.example.com/uploads/fixed-id/My Reel.mp4" {
		t.Fatalf("unexpected file url %q", creds.FileURL)
	}
	if creds.Method != "PUT" {
		t.Fatalf("unexpected method %q", creds.Method)
	}

	parsed, err := url.Parse(creds.UploadURL)
	if err != nil {
		t.Fatalf("parse upload url: %v", err)
	}
	if parsed.Host != "localhost:9000" || !strings.HasPrefix(parsed.Path, "/reels/uploads/fixed-id/") {
		t.Fatalf("unexpected upload url %s", creds.UploadURL)
	}
	if parsed.Query().Get("X-Amz-Signature") == "" {
		t.Fatalf("expected signed url got %s", creds.UploadURL)
	}
	if parsed.Query().Get("X-Amz-Expires") != "600" {
		t.Fatalf("unexpected expiry %q", parsed.Query().Get("X-Amz-Expires"))
	}
}

func TestS3SignerRequiresFileName(t *testing.T) {
	signer := newTestS3Signer(t)
	for _, name := range []string{"", "  ", "/"} {
		if _, err := signer.Sign(context.Background(), UploadRequest{FileName: name}); !errors.Is(err, ErrMissingFileName) {
			t.Fatalf("expected missing file name for %q got %v", name, err)
		}
	}
}

func TestNewS3SignerRequiresBucket(t *testing.T) {
	if _, err := NewS3Signer(context.Background(), config.ObjectStoreConfig{Region: "us-east-1"}, time.Minute); err == nil {
		t.Fatal("expected bucket error")
	}
}
