package config

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
)

// RenderTemplate copies the file at in to out line by line, replacing every
// $NAME$ with vars[NAME]. Placeholders without a value are left as they are.
func RenderTemplate(in, out string, vars map[string]string) (err error) {
	src, err := os.Open(in)
	if err != nil {
		return fmt.Errorf("render %s: %w", in, err)
	}
	defer src.Close()

	dst, err := os.OpenFile(out, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("render %s: %w", in, err)
	}
	defer func() {
		if cerr := dst.Close(); err == nil && cerr != nil {
			err = fmt.Errorf("render %s: %w", in, cerr)
		}
	}()

	replacer := placeholderReplacer(vars)
	r := bufio.NewReader(src)
	w := bufio.NewWriter(dst)
	for {
		line, rerr := r.ReadString('\n')
		if line != "" {
			if _, err := w.WriteString(replacer.Replace(line)); err != nil {
				return fmt.Errorf("render %s: %w", in, err)
			}
		}
		if errors.Is(rerr, io.EOF) {
			break
		}
		if rerr != nil {
			return fmt.Errorf("render %s: %w", in, rerr)
		}
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("render %s: %w", in, err)
	}
	return nil
}

func placeholderReplacer(vars map[string]string) *strings.Replacer {
	names := make([]string, 0, len(vars))
	for name := range vars {
		names = append(names, name)
	}
	sort.Strings(names)
	pairs := make([]string, 0, 2*len(names))
	for _, name := range names {
		pairs = append(pairs, "$"+name+"$", vars[name])
	}
	return strings.NewReplacer(pairs...)
}
