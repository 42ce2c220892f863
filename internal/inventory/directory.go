package inventory

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"sync"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"viosinspect/internal/executor"
	"viosinspect/internal/model"
)

// reachProbe is a cheap remote command used to verify the c_rsh path to
// a VIOS before it is accepted as a target.
const reachProbe = "/usr/bin/ls /dev/null"

// Directory discovers NIM-managed VIOS and HMC objects and validates
// operation targets against them.
type Directory struct {
	exec        *executor.Executor
	logger      zerolog.Logger
	concurrency int
}

// NewDirectory creates a Directory. concurrency bounds the reachability
// probe fan-out; values below 1 mean unbounded.
func NewDirectory(exec *executor.Executor, logger zerolog.Logger, concurrency int) *Directory {
	return &Directory{
		exec:        exec,
		logger:      logger.With().Str("component", "inventory").Logger(),
		concurrency: concurrency,
	}
}

// Discover builds the VIOS and HMC inventory from the NIM master.
func (d *Directory) Discover(ctx context.Context) (*model.NIMInfo, error) {
	info := model.NewNIMInfo()

	res, err := d.exec.Local(ctx, "/usr/sbin/lsnim", "-t", "vios", "-l")
	if err != nil {
		return nil, fmt.Errorf("listing NIM vios objects: %w", err)
	}
	for _, st := range ParseStanzas(res.Stdout) {
		v := &model.VIOS{
			Name:   st.Name,
			IP:     Hostname(st.Attrs["if1"]),
			CState: st.Attrs["Cstate"],
		}
		if prof, ok := ParseMgmtProfile(st.Attrs["mgmt_profile1"]); ok {
			v.MgmtHMCID = prof.HMCID
			v.MgmtVIOSID = prof.PartID
			v.MgmtCECSerial = prof.CECSerial
		}
		info.VIOS[st.Name] = v
	}

	res, err = d.exec.Local(ctx, "/usr/sbin/lsnim", "-t", "hmc", "-l")
	if err != nil {
		return nil, fmt.Errorf("listing NIM hmc objects: %w", err)
	}
	for _, st := range ParseStanzas(res.Stdout) {
		info.HMC[st.Name] = &model.HMC{
			Name:       st.Name,
			IP:         Hostname(st.Attrs["if1"]),
			CState:     st.Attrs["Cstate"],
			Login:      st.Attrs["login"],
			PasswdFile: st.Attrs["passwd_file"],
		}
	}

	d.logger.Info().
		Int("vios", len(info.VIOS)).
		Int("hmc", len(info.HMC)).
		Msg("NIM inventory discovered")
	return info, nil
}

var targetTuple = regexp.MustCompile(`\(([^()]*)\)`)

// ParseTargets splits a target string like "(v1,hdisk1)(v2,,v3,hdisk3)"
// into pairs. Each tuple holds one or two (vios,disk) couples; an empty
// disk requests automatic selection. Wrong arity is an error.
func ParseTargets(spec string) ([]model.TargetPair, error) {
	trimmed := strings.TrimSpace(spec)
	if trimmed == "" {
		return nil, fmt.Errorf("empty target list")
	}

	matches := targetTuple.FindAllStringSubmatch(trimmed, -1)
	// Reject stray text between or around the tuples.
	if targetTuple.ReplaceAllString(strings.ReplaceAll(trimmed, " ", ""), "") != "" {
		return nil, fmt.Errorf("malformed target list %q", spec)
	}

	var pairs []model.TargetPair
	for _, m := range matches {
		elts := strings.Split(m[1], ",")
		for i := range elts {
			elts[i] = strings.TrimSpace(elts[i])
		}
		switch len(elts) {
		case 2:
			pairs = append(pairs, model.TargetPair{Hosts: []model.TargetHost{
				{Name: elts[0], Disk: elts[1]},
			}})
		case 4:
			pairs = append(pairs, model.TargetPair{Hosts: []model.TargetHost{
				{Name: elts[0], Disk: elts[1]},
				{Name: elts[2], Disk: elts[3]},
			}})
		default:
			return nil, fmt.Errorf("tuple (%s) must name one or two vios,disk couples", m[1])
		}
		last := pairs[len(pairs)-1]
		for _, h := range last.Hosts {
			if h.Name == "" {
				return nil, fmt.Errorf("tuple (%s) has an empty vios name", m[1])
			}
		}
	}
	return pairs, nil
}

// ValidateTargets filters parsed pairs against the inventory. A VIOS
// named twice anywhere in the list is a run-wide error. Pairs naming a
// VIOS unknown to NIM or unreachable over c_rsh are skipped with a
// diagnostic. Reachability probes fan out concurrently.
func (d *Directory) ValidateTargets(ctx context.Context, pairs []model.TargetPair, info *model.NIMInfo) ([]model.TargetPair, error) {
	seen := make(map[string]bool)
	for _, p := range pairs {
		for _, h := range p.Hosts {
			if seen[h.Name] {
				return nil, fmt.Errorf("vios %s appears more than once in the target list", h.Name)
			}
			seen[h.Name] = true
		}
	}

	kept := make([]bool, len(pairs))
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	if d.concurrency > 0 {
		g.SetLimit(d.concurrency)
	}
	for i, p := range pairs {
		i, p := i, p
		g.Go(func() error {
			for _, h := range p.Hosts {
				vios := info.LookupVIOS(h.Name)
				if vios == nil {
					d.logger.Warn().Str("vios", h.Name).Str("pair", p.Key()).
						Msg("skipping pair: vios not known to NIM")
					return nil
				}
				if _, err := d.exec.Remote(gctx, vios.IP, reachProbe); err != nil {
					d.logger.Warn().Str("vios", h.Name).Str("pair", p.Key()).Err(err).
						Msg("skipping pair: vios not reachable")
					return nil
				}
				mu.Lock()
				vios.Reachable = true
				mu.Unlock()
			}
			kept[i] = true
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var valid []model.TargetPair
	for i, p := range pairs {
		if kept[i] {
			valid = append(valid, p)
		}
	}
	d.logger.Info().Int("requested", len(pairs)).Int("accepted", len(valid)).
		Msg("target validation done")
	return valid, nil
}
