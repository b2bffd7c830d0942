package version

import (
	"strings"

	"github.com/Masterminds/semver/v3"
	"github.com/rxtech-lab/argo-robot/pkg/errors"
)

// CheckConfigCompatibility checks that a configuration file written for
// configVersion can be run by a robot at robotVersion.
//
//   - an empty configVersion or a "main" robot build skips the check
//   - major versions must match
//   - the config's minor version must not be newer than the robot's
//
// Examples:
//   - robot 1.4.0, config 1.2 -> OK
//   - robot 1.2.0, config 1.3 -> ERROR (config needs newer features)
//   - robot 2.0.0, config 1.9 -> ERROR (major differs)
func CheckConfigCompatibility(robotVersion, configVersion string) error {
	robotVersion = strings.TrimPrefix(robotVersion, "v")
	configVersion = strings.TrimPrefix(configVersion, "v")

	if configVersion == "" || robotVersion == "main" {
		return nil
	}

	robot, err := semver.NewVersion(robotVersion)
	if err != nil {
		return errors.Wrapf(errors.ErrCodeInvalidConfiguration, err, "invalid robot version %q", robotVersion)
	}

	cfg, err := semver.NewVersion(configVersion)
	if err != nil {
		return errors.Wrapf(errors.ErrCodeInvalidConfiguration, err, "invalid config version %q", configVersion)
	}

	if robot.Major() != cfg.Major() {
		return errors.Newf(errors.ErrCodeInvalidConfiguration,
			"major version mismatch: robot is %d.x.x but config requires %d.x.x", robot.Major(), cfg.Major())
	}

	if cfg.Minor() > robot.Minor() {
		return errors.Newf(errors.ErrCodeInvalidConfiguration,
			"config requires %d.%d.x but robot is %s", cfg.Major(), cfg.Minor(), robot.String())
	}

	return nil
}
