package pubsub

import (
	"testing"

	"github.com/wattly/wattly-backend/pkg/config"
)

func TestSubscriptionNamesCoverDocumentAndDomain(t *testing.T) {
	cfg := config.PubSubConfig{
		DocumentSubscription: "wattly-document-sub",
		DomainSubscription:   "wattly-domain-sub",
	}

	names := subscriptionNames(cfg)
	if len(names) != 2 {
		t.Fatalf("expected 2 subscription names, got %d (%v)", len(names), names)
	}
	if names[0] != "wattly-document-sub" || names[1] != "wattly-domain-sub" {
		t.Fatalf("unexpected subscription names: %v", names)
	}
}

func TestSubscriptionNamesSkipBlankEntries(t *testing.T) {
	cfg := config.PubSubConfig{DomainSubscription: "  wattly-domain-sub  "}

	names := subscriptionNames(cfg)
	if len(names) != 1 {
		t.Fatalf("expected 1 subscription name, got %d (%v)", len(names), names)
	}
	if names[0] != "wattly-domain-sub" {
		t.Fatalf("expected trimmed name, got %q", names[0])
	}
}

func TestResourceNameExpansion(t *testing.T) {
	c := &Client{projectID: "wattly-prod"}

	if got := c.subscriptionResourceName("wattly-domain-sub"); got != "projects/wattly-prod/subscriptions/wattly-domain-sub" {
		t.Fatalf("unexpected subscription resource name %q", got)
	}
	full := "projects/other/subscriptions/already-full"
	if got := c.subscriptionResourceName(full); got != full {
		t.Fatalf("full resource name should pass through, got %q", got)
	}
	if got := c.topicResourceName("wattly-domain-events"); got != "projects/wattly-prod/topics/wattly-domain-events" {
		t.Fatalf("unexpected topic resource name %q", got)
	}
}
