package text

import "regexp"

// Rule is a single substitution in the cleaning chain.
type Rule struct {
	Name    string
	Pattern *regexp.Regexp
	Replace string

	// expand enables $1-style group references in Replace.
	expand bool
}

// Apply runs the substitution over every non-overlapping match in s.
func (r Rule) Apply(s string) string {
	if r.expand {
		return r.Pattern.ReplaceAllString(s, r.Replace)
	}
	return r.Pattern.ReplaceAllLiteralString(s, r.Replace)
}

func literal(old, replace string) Rule {
	return Rule{
		Name:    old,
		Pattern: regexp.MustCompile(regexp.QuoteMeta(old)),
		Replace: replace,
	}
}

func pattern(name, expr, replace string, expand bool) Rule {
	return Rule{
		Name:    name,
		Pattern: regexp.MustCompile(expr),
		Replace: replace,
		expand:  expand,
	}
}

// Rules is the ordered cleaning chain. Later rules see the output of earlier
// ones: contractions are expanded before apostrophes are stripped, and the
// allow-list runs before any punctuation padding. Do not reorder.
//
// Slang entries are plain substring replacements and also fire inside longer
// words ("update" becomes "upthate").
var Rules = []Rule{
	// platform placeholders
	literal("<user>", ""),
	literal("<url>", ""),

	// slang
	literal("plz", "please"),
	literal("dat", "that"),
	literal("bc", "because"),
	literal("jk", "joke"),
	literal("ya", "your"),
	literal("thang", "thing"),
	literal("dunno", "do not know"),
	literal("doin", "doing"),
	literal("lil", "little"),
	literal("tmr", "tomorrow"),

	literal("#", ""),
	literal(">", ""),
	literal("> >", " "),

	// Everything outside letters, digits and ^ , ! . / ' and the +..= range
	// (which also admits : ; <) becomes a space.
	pattern("allow-list", `[^A-Za-z0-9^,!./'+-=]`, " ", false),

	// contractions
	literal("what's", "what is "),
	literal("'s", " "),
	literal("'ve", " have "),
	literal("can't", "cannot "),
	literal("n't", " not "),
	literal("i'm", "i am "),
	literal("'re", " are "),
	literal("'d", " would "),
	literal("'ll", " will "),

	literal(",", " "),
	literal(".", " "),
	literal("!", " ! "),
	literal("/", " "),
	literal("^", " ^ "),
	literal("+", " + "),
	literal("-", " - "),
	literal("=", " = "),
	literal("'", " "),
	pattern("thousands", `(\d+)(k)`, "${1}000", true),
	literal(":", " : "),
	literal(" u s ", " american "),
	// NUL never survives the allow-list, so this only fires on text that
	// bypassed it.
	literal("\x00s", "0"),
	literal(" 9 11 ", "911"),
	literal("e - mail", "email"),
	pattern("whitespace", `\s{2,}`, " ", false),
}

// Clean applies Rules in order. It does not lowercase or tokenize.
func Clean(s string) string {
	for _, r := range Rules {
		s = r.Apply(s)
	}
	return s
}
