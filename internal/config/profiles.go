package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

const defaultTokenPrice = 10.0

// Profile is a named LLM connection: an OpenAI-compatible endpoint, a
// credential, a model identifier and a per-million-token price used for the
// cost display.
type Profile struct {
	Name       string
	URL        string
	APIKey     string
	Model      string
	TokenPrice float64
}

var (
	urlLine    = regexp.MustCompile(`URL:\s*(.+)`)
	apiKeyLine = regexp.MustCompile(`API Key:\s*(.+)`)
	modelLine  = regexp.MustCompile(`LLM Model:\s*(.+)`)
	// Two price labels are accepted; older profile files carry the second.
	priceLines = []struct {
		label string
		re    *regexp.Regexp
	}{
		{"Token Price:", regexp.MustCompile(`Token Price:\s*([\d.,]+)`)},
		{"Price per Million:", regexp.MustCompile(`Price per Million:\s*([\d.,]+)`)},
	}
	unsafeNameChars = regexp.MustCompile(`[<>:"/\\|?*]`)
)

// ParseProfile decodes the line-oriented profile format. URL, API key and
// model are required; the price is optional and defaults when absent or
// unparsable.
func ParseProfile(name, content string) (Profile, bool) {
	p := Profile{Name: name, TokenPrice: defaultTokenPrice}

	if m := urlLine.FindStringSubmatch(content); m != nil {
		p.URL = strings.TrimSpace(m[1])
	}
	if m := apiKeyLine.FindStringSubmatch(content); m != nil {
		p.APIKey = strings.TrimSpace(m[1])
	}
	if m := modelLine.FindStringSubmatch(content); m != nil {
		p.Model = strings.TrimSpace(m[1])
	}
	for _, pl := range priceLines {
		if m := pl.re.FindStringSubmatch(content); m != nil {
			raw := strings.ReplaceAll(strings.TrimSpace(m[1]), ",", ".")
			if v, err := strconv.ParseFloat(raw, 64); err == nil {
				p.TokenPrice = v
			}
			break
		}
	}

	if p.URL == "" || p.APIKey == "" || p.Model == "" {
		return Profile{}, false
	}
	return p, true
}

// LoadProfiles reads every .txt profile in dir. Unreadable or incomplete
// files are skipped, not fatal. A missing directory yields an empty map.
func LoadProfiles(dir string) map[string]Profile {
	profiles := make(map[string]Profile)
	entries, err := os.ReadDir(dir)
	if err != nil {
		return profiles
	}
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".txt") {
			continue
		}
		content, err := os.ReadFile(filepath.Join(dir, e.Name()))
		if err != nil {
			continue
		}
		name := strings.TrimSuffix(e.Name(), ".txt")
		if p, ok := ParseProfile(name, string(content)); ok {
			profiles[name] = p
		}
	}
	return profiles
}

// ProfileNames returns the sorted names for stable presentation.
func ProfileNames(profiles map[string]Profile) []string {
	names := make([]string, 0, len(profiles))
	for n := range profiles {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// SaveProfile writes a full profile file named after the sanitized model
// identifier and returns that name.
func SaveProfile(dir string, p Profile) (string, error) {
	model := strings.TrimSpace(p.Model)
	if model == "" {
		return "", fmt.Errorf("model name is required")
	}
	safeName := unsafeNameChars.ReplaceAllString(model, "_")
	if safeName == "" {
		return "", fmt.Errorf("model name %q is not usable as a profile name", p.Model)
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating profile dir: %w", err)
	}
	content := fmt.Sprintf("URL: %s\nAPI Key: %s\nLLM Model: %s\nToken Price: %g\n",
		p.URL, p.APIKey, model, p.TokenPrice)
	if err := os.WriteFile(filepath.Join(dir, safeName+".txt"), []byte(content), 0o600); err != nil {
		return "", fmt.Errorf("writing profile: %w", err)
	}
	return safeName, nil
}

// SaveTokenPrice rewrites only the price line of an existing profile,
// inserting one after the model line when no price line exists yet.
func SaveTokenPrice(dir, name string, price float64) error {
	path := filepath.Join(dir, name+".txt")
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading profile %q: %w", name, err)
	}
	content := string(raw)
	priceStr := strconv.FormatFloat(price, 'g', -1, 64)

	replaced := false
	for _, pl := range priceLines {
		if pl.re.MatchString(content) {
			content = pl.re.ReplaceAllString(content, pl.label+" "+priceStr)
			replaced = true
			break
		}
	}
	if !replaced {
		content = modelLine.ReplaceAllStringFunc(content, func(line string) string {
			return line + "\nToken Price: " + priceStr
		})
	}
	return os.WriteFile(path, []byte(content), 0o600)
}
