package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

const validYAML = `
cloudflare:
  api_token: tok123
  zone_id: zone1
  domain_name: app.example.com
servers:
  primary:
    ip: 10.0.0.1
    port: 443
    priority: 1
  backup:
    ip: 10.0.0.2
    port: 443
    priority: 2
monitoring:
  check_interval: 30
  timeout: 5
  failure_threshold: 3
  check_method: http
  http_check_path: /health
dns:
  record_type: A
  ttl: 120
log:
  level: debug
  format: json
admin:
  addr: 127.0.0.1:8701
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()

	pth := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(pth, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	return pth
}

func TestParseConfig(t *testing.T) {
	t.Parallel()

	conf, err := ParseConfig(writeConfig(t, validYAML))
	if err != nil {
		t.Fatal(err)
	}
	if conf.Cloudflare.DomainName != "app.example.com" {
		t.Fatalf("bad domain: %s", conf.Cloudflare.DomainName)
	}
	if conf.CheckInterval() != 30*time.Second {
		t.Fatalf("bad interval: %s", conf.CheckInterval())
	}
	if conf.ProbeTimeout() != 5*time.Second {
		t.Fatalf("bad timeout: %s", conf.ProbeTimeout())
	}
	if conf.Monitoring.CheckMethod != "http" ||
		conf.Monitoring.HTTPCheckPath != "/health" {
		t.Fatalf("bad monitoring: %+v", conf.Monitoring)
	}
	if conf.Admin.Addr != "127.0.0.1:8701" {
		t.Fatalf("bad admin addr: %s", conf.Admin.Addr)
	}

	specs := conf.ServerSpecs()
	if len(specs) != 2 {
		t.Fatalf("want 2 specs, got %d", len(specs))
	}
	byName := map[string]bool{}
	for _, s := range specs {
		byName[s.Name] = true
	}
	if !byName["primary"] || !byName["backup"] {
		t.Fatalf("bad specs: %+v", specs)
	}
}

func TestParseConfigDefaults(t *testing.T) {
	t.Parallel()

	conf, err := ParseConfig(writeConfig(t, `
cloudflare:
  api_token: tok123
  zone_id: zone1
  domain_name: app.example.com
servers:
  primary: {ip: 10.0.0.1, port: 443, priority: 1}
  backup: {ip: 10.0.0.2, port: 443, priority: 2}
`))
	if err != nil {
		t.Fatal(err)
	}
	if conf.Monitoring.CheckMethod != "tcp" {
		t.Fatalf("want tcp default, got %s", conf.Monitoring.CheckMethod)
	}
	if conf.Monitoring.FailureThreshold != 3 {
		t.Fatalf("want threshold 3, got %d",
			conf.Monitoring.FailureThreshold)
	}
	if conf.DNS.RecordType != "A" || conf.DNS.TTL != 300 {
		t.Fatalf("bad dns defaults: %+v", conf.DNS)
	}
	if conf.CheckInterval() != time.Minute {
		t.Fatalf("bad interval default: %s", conf.CheckInterval())
	}
}

func TestParseConfigInvalid(t *testing.T) {
	t.Parallel()

	type testcase struct {
		body string
		want string
	}
	tcs := map[string]testcase{
		"missing token": {
			body: strings.Replace(validYAML,
				"api_token: tok123", "api_token: \"\"", 1),
			want: "api_token",
		},
		"placeholder token": {
			body: strings.Replace(validYAML,
				"api_token: tok123", "api_token: YOUR_API_TOKEN", 1),
			want: "api_token",
		},
		"one server": {
			body: `
cloudflare:
  api_token: tok123
  zone_id: zone1
  domain_name: app.example.com
servers:
  primary: {ip: 10.0.0.1, port: 443, priority: 1}
`,
			want: "two servers",
		},
		"bad method": {
			body: strings.Replace(validYAML,
				"check_method: http", "check_method: icmp", 1),
			want: "check_method",
		},
		"bad port": {
			body: strings.Replace(validYAML,
				"port: 443", "port: 70000", 1),
			want: "port",
		},
		"missing server ip": {
			body: strings.Replace(validYAML,
				"ip: 10.0.0.1", "ip: \"\"", 1),
			want: "ip",
		},
	}
	for name, tc := range tcs {
		tc := tc
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			_, err := ParseConfig(writeConfig(t, tc.body))
			if err == nil {
				t.Fatal("want error")
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("want %q in error, got %v", tc.want, err)
			}
		})
	}
}

func TestParseConfigMissingFile(t *testing.T) {
	t.Parallel()

	_, err := ParseConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	if err == nil {
		t.Fatal("want error")
	}
}
