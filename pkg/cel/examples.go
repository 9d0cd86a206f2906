package cel

// ConditionExpressionExamples lists expressions accepted in an SPT
// Extension/Expression element.
var ConditionExpressionExamples = map[string]string{
	"method_equals":      `method == "INVITE"`,
	"method_in_list":     `method in ["INVITE", "MESSAGE"]`,
	"uri_prefix":         `request_uri.startsWith("sip:+44")`,
	"uri_regex":          `request_uri.matches("^sip:[0-9]+@")`,
	"header_present":     `"p-asserted-identity" in headers`,
	"header_value":       `"privacy" in headers && headers["privacy"].exists(v, v == "id")`,
	"session_case":       `session_case == "term" && !registered`,
	"body_contains":      `body.contains("m=video")`,
	"combined_condition": `method == "INVITE" && session_case == "orig" && registered`,
}
