package secrets

import (
	"context"
	"encoding/json"
	"testing"
)

func TestProviderKeys_SecretShape(t *testing.T) {
	secret := `{"google":"g","anthropic":"a","openai":"o","groq":"q","together":"t","openrouter":"r"}`

	var keys ProviderKeys
	if err := json.Unmarshal([]byte(secret), &keys); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if keys.Google != "g" || keys.Anthropic != "a" || keys.OpenAI != "o" {
		t.Errorf("unexpected keys %+v", keys)
	}
	if keys.Groq != "q" || keys.Together != "t" || keys.OpenRouter != "r" {
		t.Errorf("unexpected keys %+v", keys)
	}
}

func TestProviderKeys_PartialSecret(t *testing.T) {
	var keys ProviderKeys
	if err := json.Unmarshal([]byte(`{"groq":"only"}`), &keys); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if keys.Groq != "only" {
		t.Errorf("Groq = %q", keys.Groq)
	}
	if keys.Google != "" || keys.Anthropic != "" {
		t.Error("absent fields must stay empty")
	}
}

func TestStaticStore(t *testing.T) {
	store := &StaticStore{Keys: ProviderKeys{Groq: "gk"}}

	keys, err := store.GetProviderKeys(context.Background(), "any-name")
	if err != nil {
		t.Fatalf("GetProviderKeys: %v", err)
	}
	if keys.Groq != "gk" {
		t.Errorf("Groq = %q", keys.Groq)
	}
}
