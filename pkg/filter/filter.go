// Package filter decides which vault paths are eligible for indexing.
package filter

import (
	"path"
	"regexp"
	"strings"
)

// Options configures a Filter. Empty lists impose no constraint.
type Options struct {
	// Blacklist patterns. A pattern excludes a path when it equals the path,
	// when the path ends with "/"+pattern, or, for patterns containing * or ?,
	// when the glob matches the full path or its base name.
	Blacklist []string

	// Extensions allowed for indexing, with or without the leading dot.
	Extensions []string

	// Folders whose direct and nested children are allowed.
	Folders []string
}

// Filter applies blacklist, extension and folder rules in that order.
type Filter struct {
	blacklist  []pattern
	extensions map[string]struct{}
	folders    []string
}

type pattern struct {
	raw  string
	glob *regexp.Regexp
}

// New compiles opts into a Filter.
func New(opts Options) *Filter {
	f := &Filter{}

	for _, raw := range opts.Blacklist {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		p := pattern{raw: raw}
		if strings.ContainsAny(raw, "*?") {
			p.glob = compileGlob(raw)
		}
		f.blacklist = append(f.blacklist, p)
	}

	if len(opts.Extensions) > 0 {
		f.extensions = make(map[string]struct{}, len(opts.Extensions))
		for _, ext := range opts.Extensions {
			ext = strings.TrimSpace(ext)
			if ext == "" {
				continue
			}
			if !strings.HasPrefix(ext, ".") {
				ext = "." + ext
			}
			f.extensions[ext] = struct{}{}
		}
	}

	for _, folder := range opts.Folders {
		folder = strings.Trim(strings.TrimSpace(folder), "/")
		if folder != "" {
			f.folders = append(f.folders, folder)
		}
	}

	return f
}

// Allow reports whether the path with the given extension should be indexed.
// extension is given without the leading dot, as document sources report it.
func (f *Filter) Allow(p, extension string) bool {
	if f.Blacklisted(p) {
		return false
	}

	if len(f.extensions) > 0 {
		if _, ok := f.extensions["."+strings.TrimPrefix(extension, ".")]; !ok {
			return false
		}
	}

	if len(f.folders) > 0 && !f.inFolder(p) {
		return false
	}

	return true
}

// Blacklisted reports whether any blacklist pattern excludes p.
func (f *Filter) Blacklisted(p string) bool {
	base := path.Base(p)
	for _, pat := range f.blacklist {
		if p == pat.raw || strings.HasSuffix(p, "/"+pat.raw) {
			return true
		}
		if pat.glob != nil && (pat.glob.MatchString(p) || pat.glob.MatchString(base)) {
			return true
		}
	}
	return false
}

func (f *Filter) inFolder(p string) bool {
	dir := path.Dir(p)
	for _, folder := range f.folders {
		if strings.HasPrefix(p, folder+"/") || dir == folder {
			return true
		}
	}
	return false
}

// compileGlob turns a glob into an anchored regexp. * matches any run of
// characters including separators and ? matches exactly one character;
// everything else is literal, so compilation cannot fail.
func compileGlob(glob string) *regexp.Regexp {
	var b strings.Builder
	b.WriteString("^")
	for _, r := range glob {
		switch r {
		case '*':
			b.WriteString(".*")
		case '?':
			b.WriteString(".")
		default:
			b.WriteString(regexp.QuoteMeta(string(r)))
		}
	}
	b.WriteString("$")
	return regexp.MustCompile(b.String())
}
