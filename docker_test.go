package countryexplorer_test

import (
	"os"
	"strings"
	"testing"
)

func readRepoFile(t *testing.T, name string) string {
	t.Helper()
	data, err := os.ReadFile(name)
	if err != nil {
		t.Fatalf("failed to read %s: %v", name, err)
	}
	return string(data)
}

// composeService はdocker-compose.ymlから指定サービスのブロックを切り出す。
// services直下（インデント2）のキーを境界とみなす。
func composeService(t *testing.T, compose, name string) string {
	t.Helper()
	lines := strings.Split(compose, "\n")
	start := -1
	for i, line := range lines {
		if start < 0 {
			if line == "  "+name+":" {
				start = i
			}
			continue
		}
		isSibling := strings.HasPrefix(line, "  ") && !strings.HasPrefix(line, "   ")
		if isSibling || (line != "" && !strings.HasPrefix(line, " ")) {
			return strings.Join(lines[start:i], "\n")
		}
	}
	if start < 0 {
		t.Fatalf("docker-compose.yml should define service %q", name)
	}
	return strings.Join(lines[start:], "\n")
}

func TestDockerfile(t *testing.T) {
	content := readRepoFile(t, "Dockerfile")

	var froms []string
	for _, line := range strings.Split(content, "\n") {
		if trimmed := strings.TrimSpace(line); strings.HasPrefix(trimmed, "FROM ") {
			froms = append(froms, trimmed)
		}
	}
	if len(froms) < 2 {
		t.Fatalf("Dockerfile should be a multi-stage build, got %d stages", len(froms))
	}
	if !strings.HasPrefix(froms[0], "FROM golang:") {
		t.Errorf("first stage should build with golang, got %q", froms[0])
	}
	if last := froms[len(froms)-1]; !strings.Contains(last, "distroless") {
		t.Errorf("final stage should be distroless, got %q", last)
	}

	for _, want := range []string{"./cmd/countryexplorer", "ENTRYPOINT", "HEALTHCHECK", `"healthcheck"`} {
		if !strings.Contains(content, want) {
			t.Errorf("Dockerfile should contain %q", want)
		}
	}
}

func TestDockerCompose_ServiceCommands(t *testing.T) {
	compose := readRepoFile(t, "docker-compose.yml")

	tests := []struct {
		service string
		want    string
	}{
		{service: "api", want: `command: ["serve"]`},
		{service: "worker", want: `command: ["worker"]`},
		{service: "worker", want: `- "9091"`},
		{service: "migrate", want: `command: ["migrate"]`},
		{service: "db", want: "image: postgres:"},
		{service: "mongo", want: "image: mongo:"},
	}

	for _, tt := range tests {
		t.Run(tt.service, func(t *testing.T) {
			if block := composeService(t, compose, tt.service); !strings.Contains(block, tt.want) {
				t.Errorf("service %s should contain %q:\n%s", tt.service, tt.want, block)
			}
		})
	}
}

func TestDockerCompose_MigrateRunsBeforeAppContainers(t *testing.T) {
	compose := readRepoFile(t, "docker-compose.yml")

	for _, svc := range []string{"api", "worker"} {
		if block := composeService(t, compose, svc); !strings.Contains(block, "service_completed_successfully") {
			t.Errorf("%s should wait for migrate to complete", svc)
		}
	}
	if block := composeService(t, compose, "migrate"); !strings.Contains(block, "service_healthy") {
		t.Error("migrate should wait for a healthy db")
	}
}

func TestDockerCompose_OnlyAPIHasEgress(t *testing.T) {
	compose := readRepoFile(t, "docker-compose.yml")

	if !strings.Contains(compose, "internal: true") {
		t.Error("docker-compose.yml should define an internal network (internal: true)")
	}

	tests := []struct {
		service      string
		wantExternal bool
	}{
		{service: "api", wantExternal: true},
		{service: "worker", wantExternal: false},
		{service: "migrate", wantExternal: false},
		{service: "db", wantExternal: false},
	}

	for _, tt := range tests {
		t.Run(tt.service, func(t *testing.T) {
			block := composeService(t, compose, tt.service)
			if !strings.Contains(block, "- internal") {
				t.Errorf("%s should join the internal network", tt.service)
			}
			if got := strings.Contains(block, "- external"); got != tt.wantExternal {
				t.Errorf("%s on external network = %v, want %v", tt.service, got, tt.wantExternal)
			}
		})
	}
}
