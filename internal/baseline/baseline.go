// Package baseline provides the S2 and LZ4 codecs the zstdx comparison report
// measures Zstandard against. They are not part of the Zstandard engine.
package baseline

import (
	"fmt"
	"sort"
	"strings"

	"github.com/arloliu/zstdx/compress"
	"github.com/arloliu/zstdx/errs"
)

var builtinCodecs = map[string]compress.Codec{
	"s2":        NewS2(false),
	"s2-better": NewS2(true),
	"lz4":       NewLZ4(),
}

// Get retrieves a baseline codec by name: "s2", "s2-better" or "lz4".
func Get(name string) (compress.Codec, error) {
	if codec, ok := builtinCodecs[strings.ToLower(name)]; ok {
		return codec, nil
	}

	return nil, fmt.Errorf("%w: unknown baseline codec %q", errs.ErrInvalidParameters, name)
}

// Names returns the names accepted by Get in sorted order.
func Names() []string {
	names := make([]string, 0, len(builtinCodecs))
	for name := range builtinCodecs {
		names = append(names, name)
	}
	sort.Strings(names)

	return names
}
