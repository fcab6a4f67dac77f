package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/term"

	apiclient "github.com/LuisErlacher/Archon/pkg/api/client"
)

type cliConfig struct {
	APIBaseURL  string `json:"api_base_url"`
	AccessToken string `json:"access_token"`
}

var buildVersion = "dev"

const requestTimeout = 15 * time.Second

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}
	cmd := os.Args[1]
	args := os.Args[2:]

	var err error
	switch cmd {
	case "login":
		err = commandLogin(args)
	case "whoami":
		err = commandWhoami(args)
	case "status":
		err = commandStatus(args)
	case "config":
		err = commandConfig(args)
	case "sessions":
		err = commandSessions(args)
	case "clients":
		err = commandClients(args)
	case "health":
		err = commandHealth(args)
	case "version", "--version", "-v":
		printVersion()
		return
	case "help", "-h", "--help":
		printUsage()
		return
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", cmd)
		printUsage()
		os.Exit(1)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func commandLogin(args []string) error {
	fs := flag.NewFlagSet("login", flag.ExitOnError)
	token := fs.String("token", "", "Access token (supply to avoid prompt)")
	apiBase := fs.String("api", "", "API base URL (default "+apiclient.DefaultBaseURL+")")
	fs.Parse(args)

	secret := strings.TrimSpace(*token)
	if secret == "" {
		fmt.Print("Access token: ")
		bytes, err := term.ReadPassword(int(os.Stdin.Fd()))
		fmt.Print("\n")
		if err != nil {
			return fmt.Errorf("read token: %w", err)
		}
		secret = strings.TrimSpace(string(bytes))
	}
	if secret == "" {
		return errors.New("access token is required")
	}

	cfg, _ := loadConfig()
	if strings.TrimSpace(*apiBase) != "" {
		cfg.APIBaseURL = *apiBase
	}

	client, err := apiclient.New(cfg.APIBaseURL)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	res, err := client.VerifyToken(ctx, secret)
	if err != nil {
		return err
	}
	if !res.Valid || res.User == nil {
		return errors.New("token rejected by the identity provider")
	}
	cfg.AccessToken = secret
	if err := saveConfig(cfg); err != nil {
		return err
	}
	fmt.Printf("logged in as %s\n", res.User.Email)
	return nil
}

func commandWhoami(args []string) error {
	fs := flag.NewFlagSet("whoami", flag.ExitOnError)
	fs.Parse(args)

	cfg, client, err := authedClient(true)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	user, err := client.CurrentUser(ctx, cfg.AccessToken)
	if err != nil {
		var apiErr apiclient.APIError
		if errors.As(err, &apiErr) && apiErr.Unauthorized() {
			return fmt.Errorf("%s (run 'archonctl login' again)", apiErr.Message)
		}
		return err
	}
	fmt.Printf("%s\t%s\n", user.ID, user.Email)
	return nil
}

func commandStatus(args []string) error {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	asJSON := fs.Bool("json", false, "Print the raw status record")
	fs.Parse(args)

	cfg, client, err := authedClient(false)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	st, err := client.MCPStatus(ctx, cfg.AccessToken)
	if err != nil {
		return err
	}
	if *asJSON {
		return printJSON(st)
	}
	uptime := "-"
	if st.Uptime != nil {
		uptime = (time.Duration(*st.Uptime) * time.Second).String()
	}
	fmt.Printf("status\t%s\nmode\t%s\ncontainer\t%s\nuptime\t%s\n", st.Status, st.Mode, st.ContainerStatus, uptime)
	if st.Message != "" {
		fmt.Printf("message\t%s\n", st.Message)
	}
	if st.Error != "" {
		fmt.Printf("error\t%s\n", st.Error)
	}
	return nil
}

func commandConfig(args []string) error {
	fs := flag.NewFlagSet("config", flag.ExitOnError)
	fs.Parse(args)

	cfg, client, err := authedClient(false)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	mcpCfg, err := client.MCPConfig(ctx, cfg.AccessToken)
	if err != nil {
		return err
	}
	fmt.Printf("host\t%s\nport\t%d\ntransport\t%s\nmodel\t%s\n", mcpCfg.Host, mcpCfg.Port, mcpCfg.Transport, mcpCfg.ModelChoice)
	return nil
}

func commandSessions(args []string) error {
	fs := flag.NewFlagSet("sessions", flag.ExitOnError)
	fs.Parse(args)

	cfg, client, err := authedClient(false)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	s, err := client.MCPSessions(ctx, cfg.AccessToken)
	if err != nil {
		return err
	}
	fmt.Printf("active\t%d\ntimeout\t%ds\n", s.ActiveSessions, s.SessionTimeout)
	if s.ServerUptimeSeconds != nil {
		fmt.Printf("uptime\t%ds\n", *s.ServerUptimeSeconds)
	}
	return nil
}

func commandClients(args []string) error {
	fs := flag.NewFlagSet("clients", flag.ExitOnError)
	fs.Parse(args)

	cfg, client, err := authedClient(false)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	clients, err := client.MCPClients(ctx, cfg.AccessToken)
	if err != nil {
		return err
	}
	if len(clients) == 0 {
		fmt.Println("no connected clients")
		return nil
	}
	for _, c := range clients {
		fmt.Printf("%s\t%s\n", c.Name, c.Type)
	}
	return nil
}

func commandHealth(args []string) error {
	fs := flag.NewFlagSet("health", flag.ExitOnError)
	fs.Parse(args)

	_, client, err := authedClient(false)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	h, err := client.Health(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("%s\t%s\n", h.Service, h.Status)
	if h.Status != "healthy" {
		return errors.New("api is degraded")
	}
	return nil
}

// authedClient loads the CLI config and builds a client. With requireToken
// the command fails early when no login was stored.
func authedClient(requireToken bool) (cliConfig, *apiclient.Client, error) {
	cfg, err := loadConfig()
	if err != nil {
		return cliConfig{}, nil, err
	}
	cfg.AccessToken = strings.TrimSpace(cfg.AccessToken)
	if requireToken && cfg.AccessToken == "" {
		return cliConfig{}, nil, errors.New("please login first using 'archonctl login'")
	}
	client, err := apiclient.New(cfg.APIBaseURL)
	if err != nil {
		return cliConfig{}, nil, err
	}
	return cfg, client, nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func loadConfig() (cliConfig, error) {
	path, err := configPath()
	if err != nil {
		return cliConfig{}, err
	}
	return readConfig(path)
}

func readConfig(path string) (cliConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cliConfig{APIBaseURL: apiclient.DefaultBaseURL}, nil
		}
		return cliConfig{}, err
	}
	var cfg cliConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return cliConfig{}, err
	}
	if cfg.APIBaseURL == "" {
		cfg.APIBaseURL = apiclient.DefaultBaseURL
	}
	return cfg, nil
}

func saveConfig(cfg cliConfig) error {
	path, err := configPath()
	if err != nil {
		return err
	}
	return writeConfig(path, cfg)
}

func writeConfig(path string, cfg cliConfig) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

func configPath() (string, error) {
	if override := strings.TrimSpace(os.Getenv("ARCHON_CONFIG")); override != "" {
		return override, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".archon", "config.json"), nil
}

func printUsage() {
	fmt.Printf("archonctl %s\n\n", buildVersion)
	fmt.Print(`Usage:
	archonctl login [--token <access-token>] [--api http://localhost:8181]
	archonctl whoami
	archonctl status [--json]
	archonctl config
	archonctl sessions
	archonctl clients
	archonctl health
	archonctl version
`)
}

func printVersion() {
	fmt.Println(strings.TrimSpace(buildVersion))
}
