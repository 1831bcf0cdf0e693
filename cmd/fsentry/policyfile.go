package main

import (
	"bytes"
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/fsentry/fsentry/pkg/fsentry/ferr"
	"github.com/fsentry/fsentry/pkg/fsentry/fconame"
	"github.com/fsentry/fsentry/pkg/fsentry/policy"
	"github.com/fsentry/fsentry/pkg/fsentry/propid"
	"github.com/fsentry/fsentry/pkg/fsentry/propvector"
)

// The policy-file grammar and its parser are named as an external
// collaborator in the core's own scope (the core only ever consumes an
// already-parsed policy.RuleList), so this front end invents its own
// minimal rule-definition format rather than reimplementing Tripwire's
// original twpolicy DSL. Rules are declared as a flat YAML list; each
// rule's mask is the same single-character string the core already
// uses for its mask-character vocabulary (propid.FromMaskChar), so the
// vocabulary stays in one place.

// ruleFile is the on-disk shape of a policy source file.
type ruleFile struct {
	Rules []ruleSpec `yaml:"rules"`
}

type ruleSpec struct {
	StartPoint   string   `yaml:"startPoint"`
	StopPoints   []string `yaml:"stopPoints"`
	RecurseDepth *int     `yaml:"recurseDepth"`
	Mask         string   `yaml:"mask"`
	Name         string   `yaml:"name"`
	Severity     int      `yaml:"severity"`
	EmailList    []string `yaml:"emailList"`
}

// ParseRuleList reads a ruleFile from source and builds a policy.RuleList
// against table, interning every start and stop point with delim.
func ParseRuleList(source []byte, table *fconame.Table, delim byte) (*policy.RuleList, error) {
	var file ruleFile
	decoder := yaml.NewDecoder(bytes.NewReader(source))
	decoder.KnownFields(true)
	if err := decoder.Decode(&file); err != nil {
		return nil, errors.Wrap(err, "unable to decode policy source")
	}

	rules := policy.NewList()
	for _, spec := range file.Rules {
		rule, err := buildRule(spec, table, delim)
		if err != nil {
			return nil, err
		}
		if err := rules.Insert(rule); err != nil {
			return nil, errors.Wrapf(err, "rule %q", spec.StartPoint)
		}
	}
	return rules, nil
}

func buildRule(spec ruleSpec, table *fconame.Table, delim byte) (*policy.Rule, error) {
	if spec.StartPoint == "" || spec.StartPoint[0] != delim {
		return nil, ferr.PathNotAbsolute(spec.StartPoint)
	}
	start := fconame.New(table, spec.StartPoint, delim)

	mask, err := parseMask(spec.Mask)
	if err != nil {
		return nil, err
	}

	recurseDepth := policy.InfiniteDepth
	if spec.RecurseDepth != nil {
		recurseDepth = *spec.RecurseDepth
	}

	rule, err := policy.New(start, recurseDepth, mask, policy.Attrs{
		Name:      spec.Name,
		Severity:  spec.Severity,
		EmailList: spec.EmailList,
	})
	if err != nil {
		return nil, errors.Wrapf(err, "rule %q", spec.StartPoint)
	}

	for _, sp := range spec.StopPoints {
		if sp == "" || sp[0] != delim {
			return nil, ferr.PathNotAbsolute(sp)
		}
		if err := rule.AddStopPoint(fconame.New(table, sp, delim)); err != nil {
			return nil, errors.Wrapf(err, "stop point %q", sp)
		}
	}
	return rule, nil
}

// parseMask decodes a mask string using the core's own mask-character
// vocabulary (spec §4.5/glossary), one property per character.
func parseMask(s string) (*propvector.Vector, error) {
	mask := propvector.New(int(propid.Count))
	for i := 0; i < len(s); i++ {
		idx, ok := propid.FromMaskChar(s[i])
		if !ok {
			return nil, ferr.BadMaskChar(s[i])
		}
		mask.Add(int(idx))
	}
	return mask, nil
}

// LoadRuleList reads a policy source file from path and parses it.
func LoadRuleList(path string, table *fconame.Table, delim byte) (*policy.RuleList, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "unable to read policy source file")
	}
	return ParseRuleList(data, table, delim)
}
