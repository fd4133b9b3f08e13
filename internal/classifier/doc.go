// Package classifier decides whether a support message closes a conversation.
//
// Three stages are offered, cheapest first: RuleClassifier matches a small
// set of canonical closing phrases, TokenCounter estimates message length so
// long messages can skip the model, and SemanticClassifier asks a language
// model for a verdict. Only the rule stage may accept on its own; a miss
// there always falls through to the later stages.
package classifier
