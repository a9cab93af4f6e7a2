package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/fatih/color"

	"github.com/dshills/configsync/internal/app"
	"github.com/dshills/configsync/internal/config"
	"github.com/dshills/configsync/internal/config/keypath"
	"github.com/dshills/configsync/internal/config/loader"
	"github.com/dshills/configsync/internal/config/registry"
)

var (
	okMark   = color.GreenString("✓")
	failMark = color.RedString("✗")
	warnMark = color.YellowString("!")
	infoMark = color.CyanString("→")
)

// cliReporter prints core notifications to stderr.
type cliReporter struct{}

func (cliReporter) Report(n app.Notification) {
	mark := infoMark
	switch n.Status {
	case app.StatusError:
		mark = failMark
	case app.StatusWarning:
		mark = warnMark
	}
	msg := mark + " " + n.Title
	if n.Description != "" {
		msg += ": " + n.Description
	}
	fmt.Fprintln(os.Stderr, msg)
}

// encodeValue renders v in format. TOML documents must be tables, so a
// scalar or list is wrapped under the last key of path.
func encodeValue(format loader.Format, path string, v any) ([]byte, error) {
	if _, isTable := v.(map[string]any); format == loader.FormatTOML && !isTable {
		key := "value"
		if segs, err := keypath.Split(path); err == nil && len(segs) > 0 {
			key = segs[len(segs)-1]
		}
		v = map[string]any{key: v}
	}
	out, err := loader.Encode(format, v)
	if err != nil {
		return nil, err
	}
	if !strings.HasSuffix(string(out), "\n") {
		out = append(out, '\n')
	}
	return out, nil
}

// plainValue renders a registered setting as bare text for scripts. The
// store's typed getters reject a value of the wrong type.
func plainValue(store *config.Store, path string) (string, error) {
	st := store.Registry().Get(path)
	if st == nil {
		return "", fmt.Errorf("--plain needs a registered setting, %s is not one", path)
	}
	switch st.Type {
	case registry.TypeInt:
		n, err := store.GetInt(path)
		return strconv.Itoa(n), err
	case registry.TypeFloat:
		f, err := store.GetFloat(path)
		return strconv.FormatFloat(f, 'g', -1, 64), err
	case registry.TypeBool:
		b, err := store.GetBool(path)
		return strconv.FormatBool(b), err
	case registry.TypeArray:
		list, err := store.GetStringSlice(path)
		return strings.Join(list, "\n"), err
	case registry.TypeString, registry.TypeEnum:
		return store.GetString(path)
	}
	v, _ := store.Get(path)
	return formatJSON(v), nil
}
