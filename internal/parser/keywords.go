package parser

var KEYWORDS = map[string]TokenType{
	"fn":           FN,
	"let":          LET,
	"if":           IF,
	"else":         ELSE,
	"for":          FOR,
	"in":           IN,
	"return":       RETURN,
	"contract":     CONTRACT,
	"struct":       STRUCT,
	"use":          USE,
	"interface":    INTERFACE,
	"resource":     RESOURCE,
	"ghost":        GHOST,
	"lemma":        LEMMA,
	"implements":   IMPLEMENTS,
	"public":       PUBLIC,
	"private":      PRIVATE,
	"payable":      PAYABLE,
	"constant":     CONSTANT,
	"pure":         PURE,
	"nonreentrant": NONREENTRANT,
	"mut":          MUT,
	"requires":     REQUIRES,
	"ensures":      ENSURES,
	"invariant":    INVARIANT,
	"check":        CHECK,
	"performs":     PERFORMS,
	"reads":        READS,
	"writes":       WRITES,
	"forall":       FORALL,
	"old":          OLD,
	"public_old":   PUBLIC_OLD,
	"unreachable":  UNREACHABLE,
	"allocate":     ALLOCATE,
	"reallocate":   REALLOCATE,
	"create":       CREATE,
	"exchange":     EXCHANGE,
	"destroy":      DESTROY,
	"raise":        RAISE,
	"assert":       ASSERT,
	"require":      REQUIRE,
	"break":        BREAK,
	"continue":     CONTINUE,
	"try":          TRY,
	"catch":        CATCH,
	"finally":      FINALLY,
	"true":         TRUE,
	"false":        FALSE,
}
