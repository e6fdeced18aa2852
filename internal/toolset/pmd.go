package toolset

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/kballard/go-shellquote"

	"github.com/imyousuf/metricscarpet/internal/experiment"
	"github.com/imyousuf/metricscarpet/internal/invoke"
	"github.com/imyousuf/metricscarpet/internal/languages"
	"github.com/imyousuf/metricscarpet/internal/measures"
)

// PMDName is the registry name of the PMD adapter.
const PMDName = "pmd"

// pmdExitViolations is PMD's exit status when it reports rule violations,
// which is the output we are after.
const pmdExitViolations = 4

// PMDHeader is the header of PMD's CSV report.
var PMDHeader = []string{"Problem", "Package", "File", "Priority", "Line", "Description", "Rule set", "Rule"}

var pmdRules = map[measures.Measure]string{
	measures.CyclomaticComplexity: "CyclomaticComplexity",
	measures.NPathComplexity:      "NPathComplexity",
}

// pmdRulesets maps each PMD rule to the ruleset that enables it.
var pmdRulesets = map[string]string{
	"CyclomaticComplexity": "java-codesize",
	"NPathComplexity":      "java-codesize",
}

// PMD runs the PMD source analyzer and reports its CSV rule violations.
type PMD struct {
	*base
	invoker    invoke.Invoker
	executable string
	ruleset    string
	rulesets   map[string]string
	extraArgs  string
	decoder    Decoder
}

// NewPMD constructs the PMD adapter.
func NewPMD(opts Options) *PMD {
	opts = opts.withDefaults()
	advertised := []measures.Measure{measures.CyclomaticComplexity, measures.NPathComplexity}
	p := &PMD{
		base:       newBase(PMDName, []string{languages.Java}, advertised, pmdRules, opts),
		invoker:    opts.Invoker,
		executable: resolve(opts.ToolsRoot, opts.Manifest.PMD.Executable, defaultPMDExecutable),
		ruleset:    resolve(opts.ToolsRoot, opts.Manifest.PMD.Resources, defaultPMDRuleset),
		rulesets:   pmdRulesets,
		extraArgs:  opts.PMDArgs,
		decoder:    &CSVDecoder{Header: PMDHeader},
	}
	for _, m := range advertised {
		rule := pmdRules[m]
		if _, ok := p.rulesets[rule]; !ok {
			panic(errors.AssertionFailedf("pmd: rule %s has no ruleset", rule))
		}
	}
	return p
}

// Measure runs PMD over the product's source tree.
func (p *PMD) Measure(ctx context.Context, product Product) error {
	sink, err := p.ready(product.Language)
	if err != nil {
		return err
	}
	return p.run(ctx, sink, product.Name, product.Location)
}

// MeasureFile runs PMD over a single source file.
func (p *PMD) MeasureFile(ctx context.Context, path string) error {
	sink, err := p.ready(languages.FromPath(path))
	if err != nil {
		return err
	}
	return p.run(ctx, sink, filepath.Base(path), path)
}

// rulesetArg returns the -R value: the bundled ruleset file when present,
// otherwise the rulesets enabling every advertised measure.
func (p *PMD) rulesetArg() (string, error) {
	if _, err := os.Stat(p.ruleset); err == nil {
		return p.ruleset, nil
	}
	var groups []string
	seen := make(map[string]bool)
	for _, m := range p.Measures() {
		rule, err := p.ResolveNativeIdentifier(m)
		if err != nil {
			return "", err
		}
		group := p.rulesets[rule]
		if !seen[group] {
			seen[group] = true
			groups = append(groups, group)
		}
	}
	return strings.Join(groups, ","), nil
}

func (p *PMD) command(target string) (invoke.Command, error) {
	rulesets, err := p.rulesetArg()
	if err != nil {
		return invoke.Command{}, err
	}
	args := []string{"pmd", "-f", "csv", "-R", rulesets, "-d", target}
	if p.extraArgs != "" {
		extra, err := shellquote.Split(p.extraArgs)
		if err != nil {
			return invoke.Command{}, errors.Wrapf(err, "pmd: parse extra arguments %q", p.extraArgs)
		}
		args = append(args, extra...)
	}
	return invoke.Command{
		Name:            PMDName,
		Path:            p.executable,
		Args:            args,
		AcceptExitCodes: []int{pmdExitViolations},
	}, nil
}

func (p *PMD) run(ctx context.Context, sink experiment.Sink, name, target string) error {
	cmd, err := p.command(target)
	if err != nil {
		return err
	}
	p.log.Debugw("invoking", "product", name, "command", cmd.String())

	res, err := p.invoker.Invoke(ctx, cmd)
	if err != nil {
		err = wrapExecution(err, "pmd: analyze %s", name)
		if _, statErr := os.Stat(p.executable); statErr != nil {
			err = errors.WithHintf(err, "no PMD launcher at %s; set tools.root or pmd.executable in %s", p.executable, ManifestFile)
		}
		return err
	}
	p.log.Debugw("finished", "product", name, "duration", res.Duration, "exit_code", res.ExitCode)

	t, err := p.decoder.Decode(res.Stdout)
	if err != nil {
		return errors.Wrapf(err, "pmd: report for %s", name)
	}
	return p.deliver(ctx, sink, name, t)
}
