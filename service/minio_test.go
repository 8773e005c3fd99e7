package service

import (
	"testing"

	"github.com/dealdeskapp/dealdesk/backend/config"
)

func TestGetPublicURL(t *testing.T) {
	tests := []struct {
		name   string
		useSSL bool
		want   string
	}{
		{"http", false, "http://minio.local:9000/dealdesk/alice/contracts/c1/agreement.pdf"},
		{"https", true, "https://minio.local:9000/dealdesk/alice/contracts/c1/agreement.pdf"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, err := NewMinioService(&config.MinioConfig{
				Endpoint:  "minio.local:9000",
				AccessKey: "key",
				SecretKey: "secret",
				Bucket:    "dealdesk",
				UseSSL:    tt.useSSL,
			})
			if err != nil {
				t.Fatalf("NewMinioService: %v", err)
			}

			got := svc.GetPublicURL("alice/contracts/c1/agreement.pdf")
			if got != tt.want {
				t.Errorf("GetPublicURL = %q, want %q", got, tt.want)
			}
		})
	}
}
