// Package flagx lets several flag sets share one command line. Each set
// parses only the arguments it recognizes and ignores the rest.
package flagx

import (
	"flag"
	"strings"
)

// FilterArgs keeps the arguments naming one of allowed, together with their
// values. Both "-c conf.json" and "--config=conf.json" forms are accepted.
// A token starting with '-' is never taken as a value.
func FilterArgs(args []string, allowed []string) []string {
	known := make(map[string]struct{}, len(allowed))
	for _, f := range allowed {
		known[f] = struct{}{}
	}

	out := make([]string, 0, len(args))

	for i := 0; i < len(args); i++ {
		arg := args[i]

		if name, _, ok := strings.Cut(arg, "="); ok && strings.HasPrefix(arg, "-") {
			if _, ok := known[name]; ok {
				out = append(out, arg)
			}
			continue
		}

		if _, ok := known[arg]; !ok {
			continue
		}
		out = append(out, arg)
		if i+1 < len(args) && !strings.HasPrefix(args[i+1], "-") {
			out = append(out, args[i+1])
			i++
		}
	}

	return out
}

// KnownFlags lists every flag of fs in both its single and double dash form.
func KnownFlags(fs *flag.FlagSet) []string {
	var names []string
	fs.VisitAll(func(f *flag.Flag) {
		names = append(names, "-"+f.Name, "--"+f.Name)
	})
	return names
}

// ParseKnown parses into fs only the arguments fs defines.
func ParseKnown(fs *flag.FlagSet, args []string) error {
	return fs.Parse(FilterArgs(args, KnownFlags(fs)))
}

// ConfigPath returns the file named by -c or -config in args, or "" when
// neither is present. When both are given the last one wins.
func ConfigPath(args []string) string {
	var path string

	fs := flag.NewFlagSet("json", flag.ContinueOnError)
	fs.StringVar(&path, "config", "", "path to config file")
	fs.StringVar(&path, "c", "", "path to config file (short)")
	_ = ParseKnown(fs, args)

	return path
}
