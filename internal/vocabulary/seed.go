package vocabulary

// Category groups related relationship types for auto-categorization of
// newly created types (spec §4.4).
type Category string

const (
	CategoryLogical    Category = "logical"
	CategoryCausal     Category = "causal"
	CategoryStructural Category = "structural"
	CategoryEvidential Category = "evidential"
	CategorySimilarity Category = "similarity"
	CategoryTemporal   Category = "temporal"
	CategoryFunctional Category = "functional"
	CategoryMeta       Category = "meta"
)

// seedType is a builtin relationship type, never deleted, with a
// category-seed phrase used to embed it at startup.
type seedType struct {
	name     string
	category Category
	phrase   string
}

// BuiltinTypes is the 31-type, 8-category seed vocabulary of spec §4.4.
var BuiltinTypes = []seedType{
	{"IMPLIES", CategoryLogical, "logically implies, necessitates"},
	{"CONTRADICTS", CategoryLogical, "logically contradicts, is inconsistent with"},
	{"PRESUPPOSES", CategoryLogical, "logically presupposes, assumes as a precondition"},
	{"EQUIVALENT_TO", CategoryLogical, "is logically equivalent to"},

	{"CAUSES", CategoryCausal, "causes, brings about"},
	{"ENABLES", CategoryCausal, "enables, makes possible"},
	{"PREVENTS", CategoryCausal, "prevents, blocks from occurring"},
	{"INFLUENCES", CategoryCausal, "influences, affects the likelihood of"},
	{"RESULTS_FROM", CategoryCausal, "results from, is an effect of"},

	{"PART_OF", CategoryStructural, "is a part of, belongs to"},
	{"CONTAINS", CategoryStructural, "contains, includes as a component"},
	{"COMPOSED_OF", CategoryStructural, "is composed of, made up of"},
	{"SUBSET_OF", CategoryStructural, "is a subset of, a specialization of"},
	{"INSTANCE_OF", CategoryStructural, "is an instance of, an example member of"},

	{"SUPPORTS", CategoryEvidential, "supports, provides evidence for"},
	{"REFUTES", CategoryEvidential, "refutes, provides evidence against"},
	{"EXEMPLIFIES", CategoryEvidential, "exemplifies, illustrates as an example"},
	{"MEASURED_BY", CategoryEvidential, "is measured by, quantified using"},

	{"SIMILAR_TO", CategorySimilarity, "is similar to, resembles"},
	{"ANALOGOUS_TO", CategorySimilarity, "is analogous to, parallels structurally"},
	{"CONTRASTS_WITH", CategorySimilarity, "contrasts with, differs notably from"},
	{"OPPOSITE_OF", CategorySimilarity, "is the opposite of, the inverse of"},

	{"PRECEDES", CategoryTemporal, "precedes, happens before"},
	{"CONCURRENT_WITH", CategoryTemporal, "is concurrent with, happens at the same time as"},
	{"EVOLVES_INTO", CategoryTemporal, "evolves into, develops over time into"},

	{"USED_FOR", CategoryFunctional, "is used for, serves the purpose of"},
	{"REQUIRES", CategoryFunctional, "requires, depends on"},
	{"PRODUCES", CategoryFunctional, "produces, generates as output"},
	{"REGULATES", CategoryFunctional, "regulates, controls the behavior of"},

	{"DEFINED_AS", CategoryMeta, "is defined as, given meaning by"},
	{"CATEGORIZED_AS", CategoryMeta, "is categorized as, classified under"},
}

// SupportiveTypes and RefutativeTypes feed the Grounding Calculator (§4.9).
var (
	SupportiveTypes = map[string]bool{
		"SUPPORTS": true, "IMPLIES": true, "EXEMPLIFIES": true,
		"ENABLES": true, "CAUSES": true,
	}
	RefutativeTypes = map[string]bool{
		"REFUTES": true, "CONTRADICTS": true, "PREVENTS": true, "OPPOSITE_OF": true,
	}
)

// categorySeedPhrases gives each category a single representative phrase,
// embedded once at startup to classify newly created types by argmax
// cosine similarity.
var categorySeedPhrases = map[Category]string{
	CategoryLogical:    "a logical relationship between propositions",
	CategoryCausal:     "a causal relationship between events or states",
	CategoryStructural: "a structural or compositional relationship between parts and wholes",
	CategoryEvidential: "an evidential relationship of support or refutation",
	CategorySimilarity: "a similarity or contrast relationship",
	CategoryTemporal:   "a temporal ordering relationship",
	CategoryFunctional: "a functional or operational relationship",
	CategoryMeta:       "a definitional or classificational relationship",
}
