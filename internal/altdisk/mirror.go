package altdisk

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"viosinspect/internal/executor"
	"viosinspect/internal/model"
)

// The AIX mirror tools can exit 0 while reporting failure in their
// output, so outcome classification matches phrases as well as exit
// codes. Keep the phrase list here, next to the commands that emit them.
const (
	unmirrorSuccessPhrase = "rootvg successfully unmirrored"
	mirrorFailurePhrase   = "Failed to mirror the volume group"
)

// MirrorController suspends and restores rootvg mirroring around a
// disruptive copy operation.
type MirrorController struct {
	exec   *executor.Executor
	logger zerolog.Logger
}

// NewMirrorController creates a MirrorController.
func NewMirrorController(exec *executor.Executor, logger zerolog.Logger) *MirrorController {
	return &MirrorController{
		exec:   exec,
		logger: logger.With().Str("component", "mirror").Logger(),
	}
}

// Suspend unmirrors the rootvg. Success requires both a zero exit code
// and the unmirror success phrase in the command output.
func (m *MirrorController) Suspend(ctx context.Context, vios *model.VIOS) error {
	m.logger.Warn().Str("vios", vios.Name).Msg("stopping rootvg mirroring")

	res, err := m.exec.Remote(ctx, vios.IP, "LC_ALL=C /usr/sbin/unmirrorvg rootvg 2>&1")
	if err != nil {
		return fmt.Errorf("unmirroring rootvg on %s: %w", vios.Name, err)
	}
	if !strings.Contains(res.Combined(), unmirrorSuccessPhrase) {
		return fmt.Errorf("unmirroring rootvg on %s: %s", vios.Name, strings.TrimSpace(res.Combined()))
	}
	m.logger.Info().Str("vios", vios.Name).Msg("rootvg unmirrored")
	return nil
}

// Resume re-mirrors the rootvg to its recorded copy count, using the
// disks that held copies 2 and 3. Success requires a zero exit code and
// the absence of the mirror failure phrase.
func (m *MirrorController) Resume(ctx context.Context, vios *model.VIOS, state *model.RootVGState) error {
	copies := state.Copies()
	cmd := fmt.Sprintf("LC_ALL=C /usr/sbin/mirrorvg -m -c %d rootvg %s", copies, state.CopyDisks[2])
	if copies > 2 {
		cmd += " " + state.CopyDisks[3]
	}
	cmd += " 2>&1"

	m.logger.Info().Str("vios", vios.Name).Int("copies", copies).Msg("restoring rootvg mirroring")

	res, err := m.exec.Remote(ctx, vios.IP, cmd)
	if err != nil {
		return fmt.Errorf("mirroring rootvg on %s: %w", vios.Name, err)
	}
	if strings.Contains(res.Combined(), mirrorFailurePhrase) {
		return fmt.Errorf("mirroring rootvg on %s: %s", vios.Name, strings.TrimSpace(res.Combined()))
	}
	m.logger.Info().Str("vios", vios.Name).Msg("rootvg mirrored")
	return nil
}
