package ifc

import (
	"encoding/xml"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"callrouter/pkg/cel"
)

// Raw document tree. Every leaf is optional here; the compile pass decides
// what is mandatory.
type rawServiceProfile struct {
	XMLName  xml.Name       `xml:"ServiceProfile"`
	Criteria []rawCriterion `xml:"InitialFilterCriteria"`
}

type rawCriterion struct {
	Priority             *string               `xml:"Priority"`
	ProfilePartIndicator *string               `xml:"ProfilePartIndicator"`
	TriggerPoint         *rawTriggerPoint      `xml:"TriggerPoint"`
	ApplicationServer    *rawApplicationServer `xml:"ApplicationServer"`
}

type rawApplicationServer struct {
	ServerName string `xml:"ServerName"`
}

type rawTriggerPoint struct {
	ConditionTypeCNF *string  `xml:"ConditionTypeCNF"`
	SPTs             []rawSPT `xml:"SPT"`
}

type rawSPT struct {
	ConditionNegated   *string                `xml:"ConditionNegated"`
	Groups             []string               `xml:"Group"`
	RequestURI         *string                `xml:"RequestURI"`
	Method             *string                `xml:"Method"`
	SIPHeader          *rawSIPHeader          `xml:"SIPHeader"`
	SessionCase        *string                `xml:"SessionCase"`
	SessionDescription *rawSessionDescription `xml:"SessionDescription"`
	Extension          *rawExtension          `xml:"Extension"`
}

type rawSIPHeader struct {
	Header  string  `xml:"Header"`
	Content *string `xml:"Content"`
}

type rawSessionDescription struct {
	Line    string  `xml:"Line"`
	Content *string `xml:"Content"`
}

type rawExtension struct {
	Expression *string `xml:"Expression"`
}

// ParseServiceProfile decodes an iFC document. A document that is not XML or
// whose root is not ServiceProfile is an error; a criterion that fails to
// compile is recorded in the profile's Faults and left out of Criteria.
// exprs may be nil, in which case Extension expressions are faults.
func ParseServiceProfile(document string, exprs *cel.Evaluator) (*ServiceProfile, error) {
	var raw rawServiceProfile
	if err := xml.Unmarshal([]byte(document), &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}

	profile := &ServiceProfile{
		Criteria: make([]FilterCriterion, 0, len(raw.Criteria)),
	}

	for i, rc := range raw.Criteria {
		fc, err := compileCriterion(i, rc, exprs)
		if err != nil {
			profile.Faults = append(profile.Faults, CriterionFault{Index: i, Err: err})
			continue
		}
		profile.Criteria = append(profile.Criteria, fc)
	}

	return profile, nil
}

func compileCriterion(index int, rc rawCriterion, exprs *cel.Evaluator) (FilterCriterion, error) {
	fc := FilterCriterion{Index: index}

	if rc.Priority != nil {
		priority, err := strconv.ParseInt(strings.TrimSpace(*rc.Priority), 10, 32)
		if err != nil || priority < 0 {
			return fc, fmt.Errorf("%w: invalid Priority %q", ErrMalformedCriterion, *rc.Priority)
		}
		fc.Priority = int32(priority)
	}

	if rc.ProfilePartIndicator != nil {
		switch strings.TrimSpace(*rc.ProfilePartIndicator) {
		case "0":
			ppi := ProfilePartRegistered
			fc.ProfilePart = &ppi
		case "1":
			ppi := ProfilePartUnregistered
			fc.ProfilePart = &ppi
		default:
			return fc, fmt.Errorf("%w: invalid ProfilePartIndicator %q", ErrMalformedCriterion, *rc.ProfilePartIndicator)
		}
	}

	if rc.ApplicationServer != nil {
		fc.ApplicationServer = strings.TrimSpace(rc.ApplicationServer.ServerName)
	}

	if rc.TriggerPoint != nil {
		tp, err := compileTriggerPoint(*rc.TriggerPoint, exprs)
		if err != nil {
			return fc, err
		}
		fc.Trigger = tp
	}

	return fc, nil
}

func compileTriggerPoint(rt rawTriggerPoint, exprs *cel.Evaluator) (*TriggerPoint, error) {
	if rt.ConditionTypeCNF == nil {
		return nil, fmt.Errorf("%w: TriggerPoint without ConditionTypeCNF", ErrMalformedCriterion)
	}
	cnf, err := parseXMLBool(*rt.ConditionTypeCNF)
	if err != nil {
		return nil, fmt.Errorf("%w: ConditionTypeCNF: %v", ErrMalformedCriterion, err)
	}

	tp := &TriggerPoint{
		CNF:  cnf,
		SPTs: make([]ServicePointTrigger, 0, len(rt.SPTs)),
	}

	for i, rs := range rt.SPTs {
		spt, err := compileSPT(rs, exprs)
		if err != nil {
			return nil, fmt.Errorf("%w: spt %d: %v", ErrMalformedCriterion, i, err)
		}
		tp.SPTs = append(tp.SPTs, spt)
	}

	return tp, nil
}

func compileSPT(rs rawSPT, exprs *cel.Evaluator) (ServicePointTrigger, error) {
	var spt ServicePointTrigger

	if rs.ConditionNegated != nil {
		negated, err := parseXMLBool(*rs.ConditionNegated)
		if err != nil {
			return spt, fmt.Errorf("ConditionNegated: %v", err)
		}
		spt.Negated = negated
	}

	for _, g := range rs.Groups {
		id, err := strconv.ParseInt(strings.TrimSpace(g), 10, 32)
		if err != nil || id < 0 {
			return spt, fmt.Errorf("invalid Group %q", g)
		}
		spt.Groups = append(spt.Groups, int32(id))
	}

	predicates := make([]Predicate, 0, 1)

	if rs.RequestURI != nil {
		re, err := regexp.Compile(strings.TrimSpace(*rs.RequestURI))
		if err != nil {
			return spt, fmt.Errorf("RequestURI: %v", err)
		}
		predicates = append(predicates, requestURIPredicate{pattern: re})
	}

	if rs.Method != nil {
		method := strings.TrimSpace(*rs.Method)
		if method == "" {
			return spt, fmt.Errorf("empty Method")
		}
		predicates = append(predicates, methodPredicate{method: method})
	}

	if rs.SIPHeader != nil {
		p, err := compileHeaderPredicate(*rs.SIPHeader)
		if err != nil {
			return spt, err
		}
		predicates = append(predicates, p)
	}

	if rs.SessionCase != nil {
		code, err := strconv.Atoi(strings.TrimSpace(*rs.SessionCase))
		if err != nil || code < 0 || code > maxSessionCaseCode {
			return spt, fmt.Errorf("invalid SessionCase %q", *rs.SessionCase)
		}
		predicates = append(predicates, sessionCasePredicate{code: code})
	}

	if rs.SessionDescription != nil {
		p, err := compileSessionDescriptionPredicate(*rs.SessionDescription)
		if err != nil {
			return spt, err
		}
		predicates = append(predicates, p)
	}

	if rs.Extension != nil && rs.Extension.Expression != nil {
		if exprs == nil {
			return spt, fmt.Errorf("expression conditions are not enabled")
		}
		program, err := exprs.CompileCondition(strings.TrimSpace(*rs.Extension.Expression))
		if err != nil {
			return spt, fmt.Errorf("Extension: %v", err)
		}
		predicates = append(predicates, expressionPredicate{evaluator: exprs, program: program})
	}

	switch len(predicates) {
	case 0:
		return spt, fmt.Errorf("no supported condition")
	case 1:
		spt.Predicate = predicates[0]
		return spt, nil
	default:
		return spt, fmt.Errorf("more than one condition in a single SPT")
	}
}

func compileHeaderPredicate(rh rawSIPHeader) (Predicate, error) {
	name := strings.TrimSpace(rh.Header)
	if name == "" {
		return nil, fmt.Errorf("SIPHeader without Header")
	}

	p := headerPredicate{name: name}
	if rh.Content != nil {
		re, err := regexp.Compile(strings.TrimSpace(*rh.Content))
		if err != nil {
			return nil, fmt.Errorf("SIPHeader Content: %v", err)
		}
		p.content = re
	}
	return p, nil
}

func compileSessionDescriptionPredicate(rd rawSessionDescription) (Predicate, error) {
	line := strings.TrimSpace(rd.Line)
	if line == "" {
		return nil, fmt.Errorf("SessionDescription without Line")
	}

	p := sessionDescriptionPredicate{line: line}
	if rd.Content != nil {
		re, err := regexp.Compile(strings.TrimSpace(*rd.Content))
		if err != nil {
			return nil, fmt.Errorf("SessionDescription Content: %v", err)
		}
		p.content = re
	}
	return p, nil
}

// parseXMLBool accepts the xsd:boolean lexical forms only.
func parseXMLBool(s string) (bool, error) {
	switch strings.TrimSpace(s) {
	case "true", "1":
		return true, nil
	case "false", "0":
		return false, nil
	default:
		return false, fmt.Errorf("invalid boolean %q", s)
	}
}
