package match

import (
	"bufio"
	"embed"
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

//go:embed data/*.tsv
var seedData embed.FS

// Dictionary maps a character to its decomposition: a stroke sequence or a
// list of structural components. Characters without an entry decompose to
// themselves.
type Dictionary map[rune]string

// Decompose expands every rune of s through the dictionary.
func (d Dictionary) Decompose(s string) []rune {
	out := make([]rune, 0, len(s)*2)
	for _, r := range s {
		if v, ok := d[r]; ok {
			out = append(out, []rune(v)...)
			continue
		}
		out = append(out, r)
	}
	return out
}

// ReadDictionary parses a decomposition table. Two line forms are accepted:
// "<char>\t<decomposition>" and the cjkvi form "U+XXXX\t<char>\t<value>...",
// as used by cjkvi-ids and the ucs-strokes tables. For cjkvi lines only the
// first alternative is kept, with ideographic description characters, source
// tags such as "[GTJ]" and entity references removed. Blank lines and lines
// starting with '#' or ';' are skipped.
func ReadDictionary(r io.Reader) (Dictionary, error) {
	d := make(Dictionary)
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" || strings.HasPrefix(text, "#") || strings.HasPrefix(text, ";") {
			continue
		}
		if strings.HasPrefix(text, "U+") {
			ch, value, ok := parseCJKVI(text)
			if !ok {
				return nil, fmt.Errorf("dictionary line %d: malformed cjkvi entry %q", line, text)
			}
			if value != "" && value != string(ch) {
				d[ch] = value
			}
			continue
		}
		char, value, ok := strings.Cut(text, "\t")
		char, value = strings.TrimSpace(char), strings.TrimSpace(value)
		if !ok || value == "" || utf8.RuneCountInString(char) != 1 {
			return nil, fmt.Errorf("dictionary line %d: want \"<char>\\t<decomposition>\", got %q", line, text)
		}
		r, _ := utf8.DecodeRuneInString(char)
		d[r] = value
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read dictionary: %w", err)
	}
	return d, nil
}

var (
	sourceTag = regexp.MustCompile(`\[[^\]]*\]`)
	entityRef = regexp.MustCompile(`&[^;]*;`)
)

// parseCJKVI reads "U+XXXX\tchar\tvalue[\talt...]". The value may itself list
// alternatives separated by commas.
func parseCJKVI(text string) (rune, string, bool) {
	fields := strings.Split(text, "\t")
	if len(fields) < 3 || utf8.RuneCountInString(strings.TrimSpace(fields[1])) != 1 {
		return 0, "", false
	}
	r, _ := utf8.DecodeRuneInString(strings.TrimSpace(fields[1]))
	value, _, _ := strings.Cut(strings.TrimSpace(fields[2]), ",")
	value = entityRef.ReplaceAllString(sourceTag.ReplaceAllString(value, ""), "")
	value = strings.Map(func(c rune) rune {
		if isDescriptionChar(c) || unicode.IsSpace(c) {
			return -1
		}
		return c
	}, value)
	return r, value, true
}

// isDescriptionChar reports ideographic description characters such as ⿰.
func isDescriptionChar(c rune) bool {
	return (c >= 0x2FF0 && c <= 0x2FFF) || c == 0x31EF
}

// LoadDictionary reads a dictionary file.
func LoadDictionary(path string) (Dictionary, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open dictionary: %w", err)
	}
	defer f.Close()
	d, err := ReadDictionary(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return d, nil
}

// Dictionaries holds the two decomposition tables used by the script matcher.
type Dictionaries struct {
	Stroke  Dictionary
	Radical Dictionary
}

// SeedDictionaries returns the embedded tables.
func SeedDictionaries() Dictionaries {
	return Dictionaries{
		Stroke:  mustSeed("data/stroke.tsv"),
		Radical: mustSeed("data/radical.tsv"),
	}
}

// LoadDictionaries reads the stroke and radical tables from files, falling back
// to the embedded table for an empty path.
func LoadDictionaries(strokePath, radicalPath string) (Dictionaries, error) {
	d := SeedDictionaries()
	var err error
	if strokePath != "" {
		if d.Stroke, err = LoadDictionary(strokePath); err != nil {
			return Dictionaries{}, err
		}
	}
	if radicalPath != "" {
		if d.Radical, err = LoadDictionary(radicalPath); err != nil {
			return Dictionaries{}, err
		}
	}
	return d, nil
}

func mustSeed(name string) Dictionary {
	f, err := seedData.Open(name)
	if err != nil {
		panic(err)
	}
	defer f.Close()
	d, err := ReadDictionary(f)
	if err != nil {
		panic(fmt.Sprintf("embedded %s: %v", name, err))
	}
	return d
}
