package loadgen

import (
	"bytes"
	"fmt"
	"net/http"
)

// Seed creates enough users and products that list, search, and order
// endpoints have data to serve before the attack starts.
func Seed(cfg *Config) error {
	client := &http.Client{Timeout: cfg.Timeout}

	fmt.Printf("Seeding %d users and %d products\n", cfg.SeedUsers, cfg.SeedProducts)

	for i := 0; i < cfg.SeedUsers; i++ {
		body := fmt.Sprintf(`{"name":"user %d","email":"user%d@perflab.test"}`, i, i)
		if err := post(client, cfg, "/api/v1/users", body); err != nil {
			return fmt.Errorf("failed to seed user %d: %w", i, err)
		}
	}

	for i := 0; i < cfg.SeedProducts; i++ {
		term := searchTerms[i%len(searchTerms)]
		body := fmt.Sprintf(`{"name":"%s %d","description":"seeded","price_cents":%d}`, term, i, 100+i)
		if err := post(client, cfg, "/api/v1/products", body); err != nil {
			return fmt.Errorf("failed to seed product %d: %w", i, err)
		}
	}

	return nil
}

func post(client *http.Client, cfg *Config, path, body string) error {
	req, err := http.NewRequest(http.MethodPost, cfg.BaseURL+path, bytes.NewReader([]byte(body)))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if cfg.RateLimitBypass != "" {
		req.Header.Set(bypassHeader, cfg.RateLimitBypass)
	}

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return nil
}
