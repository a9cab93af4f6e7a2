package backend

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"runtime"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/dshills/configsync/internal/protocol"
)

// Probe runs a Java executable and returns its version banner.
type Probe func(ctx context.Context, java string) (string, error)

// ExecProbe runs `java -version`, which prints to stderr.
func ExecProbe(ctx context.Context, java string) (string, error) {
	out, err := exec.CommandContext(ctx, java, "-version").CombinedOutput()
	if err != nil {
		return "", fmt.Errorf("%s -version: %w", java, err)
	}
	return string(out), nil
}

// RuntimeScanner discovers installed Java runtimes.
type RuntimeScanner struct {
	javaHome    string
	searchPaths []string
	lookPath    func(string) (string, error)
	probe       Probe
	timeout     time.Duration
	logger      zerolog.Logger
}

// ScannerOption configures a RuntimeScanner.
type ScannerOption func(*RuntimeScanner)

// WithJavaHome sets the JAVA_HOME candidate. Empty disables it.
func WithJavaHome(dir string) ScannerOption {
	return func(s *RuntimeScanner) {
		s.javaHome = dir
	}
}

// WithSearchPaths replaces the default search globs. Each glob may match
// a runtime home directory or a java executable.
func WithSearchPaths(globs ...string) ScannerOption {
	return func(s *RuntimeScanner) {
		s.searchPaths = globs
	}
}

// WithProbe replaces the version probe.
func WithProbe(p Probe) ScannerOption {
	return func(s *RuntimeScanner) {
		s.probe = p
	}
}

// WithLookPath replaces the PATH lookup. Nil disables it.
func WithLookPath(fn func(string) (string, error)) ScannerOption {
	return func(s *RuntimeScanner) {
		s.lookPath = fn
	}
}

// WithProbeTimeout bounds each probe.
func WithProbeTimeout(d time.Duration) ScannerOption {
	return func(s *RuntimeScanner) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// WithScannerLogger sets the logger.
func WithScannerLogger(logger zerolog.Logger) ScannerOption {
	return func(s *RuntimeScanner) {
		s.logger = logger
	}
}

// NewRuntimeScanner creates a scanner using JAVA_HOME, PATH, and the
// platform's usual install locations.
func NewRuntimeScanner(opts ...ScannerOption) *RuntimeScanner {
	s := &RuntimeScanner{
		javaHome:    os.Getenv("JAVA_HOME"),
		searchPaths: DefaultSearchPaths(runtime.GOOS),
		lookPath:    exec.LookPath,
		probe:       ExecProbe,
		timeout:     5 * time.Second,
		logger:      zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With().Str("component", "runtimes").Logger()
	return s
}

// DefaultSearchPaths returns the install locations searched on goos.
func DefaultSearchPaths(goos string) []string {
	switch goos {
	case "darwin":
		return []string{
			"/Library/Java/JavaVirtualMachines/*/Contents/Home",
			"/opt/homebrew/opt/openjdk*",
		}
	case "windows":
		return []string{
			`C:\Program Files\Java\*`,
			`C:\Program Files\Eclipse Adoptium\*`,
			`C:\Program Files\Zulu\*`,
			`C:\Program Files\Microsoft\jdk-*`,
		}
	default:
		return []string{
			"/usr/lib/jvm/*",
			"/usr/java/*",
			"/opt/java/*",
			"/opt/jdk*",
		}
	}
}

// Scan probes every candidate and returns the runtimes that answered,
// newest major version first. Candidates that fail to probe are skipped.
func (s *RuntimeScanner) Scan(ctx context.Context) ([]protocol.RuntimeInfo, error) {
	candidates := s.candidates()
	s.logger.Debug().Int("candidates", len(candidates)).Msg("probing runtimes")

	found := make([]protocol.RuntimeInfo, 0, len(candidates))
	for _, java := range candidates {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		info, err := s.inspect(ctx, java)
		if err != nil {
			s.logger.Debug().Err(err).Str("java", java).Msg("skipping runtime")
			continue
		}
		found = append(found, info)
	}

	sort.SliceStable(found, func(i, j int) bool {
		if found[i].MajorVersion != found[j].MajorVersion {
			return found[i].MajorVersion > found[j].MajorVersion
		}
		return found[i].ExecPath < found[j].ExecPath
	})
	return found, nil
}

func (s *RuntimeScanner) inspect(ctx context.Context, java string) (protocol.RuntimeInfo, error) {
	pctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	out, err := s.probe(pctx, java)
	if err != nil {
		return protocol.RuntimeInfo{}, err
	}
	version, err := ParseVersionBanner(out)
	if err != nil {
		return protocol.RuntimeInfo{}, fmt.Errorf("%s: %w", java, err)
	}
	return protocol.RuntimeInfo{
		Name:         runtimeName(java),
		MajorVersion: version.Major,
		ExecPath:     java,
		Vendor:       version.Vendor,
	}, nil
}

// candidates lists java executables in discovery order, deduplicated by
// resolved path.
func (s *RuntimeScanner) candidates() []string {
	var out []string
	seen := make(map[string]bool)
	add := func(java string) {
		resolved, err := filepath.EvalSymlinks(java)
		if err != nil {
			return
		}
		info, err := os.Stat(resolved)
		if err != nil || info.IsDir() {
			return
		}
		if !seen[resolved] {
			seen[resolved] = true
			out = append(out, resolved)
		}
	}

	if s.javaHome != "" {
		add(javaIn(s.javaHome))
	}
	if s.lookPath != nil {
		if p, err := s.lookPath(javaExe()); err == nil {
			add(p)
		}
	}
	for _, pattern := range s.searchPaths {
		matches, err := filepath.Glob(pattern)
		if err != nil {
			s.logger.Warn().Err(err).Str("pattern", pattern).Msg("bad search pattern")
			continue
		}
		for _, m := range matches {
			info, err := os.Stat(m)
			if err != nil {
				continue
			}
			if info.IsDir() {
				add(javaIn(m))
			} else {
				add(m)
			}
		}
	}
	return out
}

func javaExe() string {
	if runtime.GOOS == "windows" {
		return "java.exe"
	}
	return "java"
}

func javaIn(home string) string {
	return filepath.Join(home, "bin", javaExe())
}

// runtimeName names a runtime after its home directory, the parent of bin.
func runtimeName(java string) string {
	home := filepath.Dir(filepath.Dir(java))
	if filepath.Base(home) == "Home" {
		// macOS bundles: .../jdk-17.jdk/Contents/Home
		home = filepath.Dir(filepath.Dir(home))
	}
	return filepath.Base(home)
}

// Version is the parsed result of a version banner.
type Version struct {
	Raw    string
	Major  int
	Vendor string
}

var (
	versionRe = regexp.MustCompile(`version "([^"]+)"`)

	// ErrNoVersion is returned for banners without a version string.
	ErrNoVersion = errors.New("no version in java banner")
)

// ParseVersionBanner extracts the version and vendor from `java -version`
// output. Legacy "1.x" versions report x as the major version.
func ParseVersionBanner(banner string) (Version, error) {
	m := versionRe.FindStringSubmatch(banner)
	if m == nil {
		return Version{}, ErrNoVersion
	}
	major, err := majorVersion(m[1])
	if err != nil {
		return Version{}, err
	}
	return Version{Raw: m[1], Major: major, Vendor: vendorOf(banner)}, nil
}

func majorVersion(v string) (int, error) {
	v = strings.TrimPrefix(v, "1.")
	end := strings.IndexAny(v, ".-+_")
	if end >= 0 {
		v = v[:end]
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("bad version %q", v)
	}
	return n, nil
}

var vendors = []struct {
	marker string
	name   string
}{
	{"Temurin", "Eclipse Adoptium"},
	{"AdoptOpenJDK", "AdoptOpenJDK"},
	{"Zulu", "Azul Zulu"},
	{"Corretto", "Amazon Corretto"},
	{"GraalVM", "GraalVM"},
	{"Microsoft", "Microsoft"},
	{"Red_Hat", "Red Hat"},
	{"Java(TM)", "Oracle"},
	{"OpenJDK", "OpenJDK"},
}

func vendorOf(banner string) string {
	for _, v := range vendors {
		if strings.Contains(banner, v.marker) {
			return v.name
		}
	}
	return ""
}
