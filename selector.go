package reagentcrawler

import "time"

type ActionKind string

const (
	ActionWaitFor  ActionKind = "wait_for"
	ActionClick    ActionKind = "click"
	ActionSleep    ActionKind = "sleep"
	ActionEvaluate ActionKind = "evaluate"
)

// Action is one step of a UI interaction run on a live session.
type Action struct {
	Kind     ActionKind
	Selector string
	Script   string
	Delay    time.Duration
	Timeout  time.Duration
}

func WaitFor(selector string, timeout time.Duration) Action {
	return Action{Kind: ActionWaitFor, Selector: selector, Timeout: timeout}
}

func Click(selector string, timeout time.Duration) Action {
	return Action{Kind: ActionClick, Selector: selector, Timeout: timeout}
}

func Sleep(d time.Duration) Action {
	return Action{Kind: ActionSleep, Delay: d}
}

func Evaluate(script string) Action {
	return Action{Kind: ActionEvaluate, Script: script}
}

// FieldRecipe declares how one column is read from a page.
type FieldRecipe struct {
	Name     string
	Selector string
	// Attr reads an attribute instead of text.
	Attr string
	// OwnText reads only the element's direct text nodes.
	OwnText bool
	// SplitText emits every non-empty text node as a separate value.
	SplitText bool
	Multiple  bool
	Unique    bool
	// Skip drops the first n matches, e.g. a placeholder option.
	Skip int
	// Contains keeps only values containing the substring.
	Contains string

	// Label looks for a LabelSelector element whose text is Label and reads
	// the value from ValueSelector inside it, or from its next sibling.
	Label         string
	LabelSelector string
	LabelContains bool
	ValueSelector string

	// URLSuffix derives the value from the page URL after the last separator.
	URLSuffix string

	// Requires names an interaction in ExtractionRecipe.Interactions that
	// must run before this field is read.
	Requires string
	// Wait makes the extractor wait for Selector on the live page first.
	Wait    bool
	Timeout time.Duration
	Default string
}

func (f FieldRecipe) defaultValue() string {
	if f.Default != "" {
		return f.Default
	}
	return DefaultValue
}

// ExtractionRecipe is the static field policy of one detail page.
type ExtractionRecipe struct {
	// Ready runs after the page opens; failures only cost the fields that
	// depend on the content it waited for.
	Ready        []Action
	Interactions map[string][]Action
	Fields       []FieldRecipe
}

// ListingRecipe declares how product references are read from a listing page.
type ListingRecipe struct {
	Ready []Action
	// ItemSelector scopes each product card or row. Empty means each link is its own item.
	ItemSelector string
	LinkSelector string
	LinkAttr     string
	LinkPrefix   string
	// NameSelector is read inside the item; empty uses the link text.
	NameSelector string
	// PageNameSelector lists names for the whole page, matched to items by index.
	PageNameSelector string
	CatalogSelector  string
	Fields           []FieldRecipe
}

func (r ListingRecipe) linkAttr() string {
	if r.LinkAttr == "" {
		return "href"
	}
	return r.LinkAttr
}
