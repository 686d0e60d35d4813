// Package config implements the MN-side ConfigurationInterface collaborator
// (spec §4.4.4, §6.5): per-CN expected identity, the expected software
// date/time (IsSoftwareUpdateRequired), and the Concise-DCF blob BOOT_STEP1
// downloads to a CN whose identity matched. No configuration date/time is
// kept or compared.
// Grounded on pkg/od/builder_ini.go's INI-manifest pattern (itself grounded
// on the teacher's EDS-driven network.go) rather than the teacher's own
// pkg/config, which is an SDO-client-backed live-parameter editor with
// nothing to say about BOOT_STEP1's identity/date checks.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"gopkg.in/ini.v1"

	powerlink "github.com/powerlink/gopowerlink"
)

// cnProfile is one CN's row in the manifest: the identity BOOT_STEP1
// compares against OD 0x1F84-0x1F87, the software date-time pair
// (0x1F53/0x1F54), and where to find its Concise-DCF blob. Configuration
// date/time (0x1F26/0x1F27) is not part of the profile.
type cnProfile struct {
	identity       powerlink.Identity
	softwareDate   uint16
	softwareTime   uint16
	conciseDCFPath string
}

// Manifest is a static, file-backed ConfigurationInterface: one INI file
// describes every CN the MN expects to find on the segment. A zero field in
// the identity (DeviceType/VendorId/ProductCode/Revision) means "do not
// check", mirroring OD 0x1F84-0x1F87's own "0 disables the check" rule.
type Manifest struct {
	logger   *slog.Logger
	profiles map[powerlink.NodeId]cnProfile
}

// Load reads an INI manifest of section name "node<id>" (decimal NodeId),
// with keys DeviceType/VendorId/ProductCode/Revision (0x-prefixed or
// decimal, per section), SoftwareDate/SoftwareTime (DS301 16-bit date/time
// encoding) and ConciseDCF (a path to the binary blob to download on a
// configuration mismatch).
func Load(logger *slog.Logger, path string) (*Manifest, error) {
	if logger == nil {
		logger = slog.Default()
	}
	cfg, err := ini.Load(path)
	if err != nil {
		return nil, fmt.Errorf("loading configuration manifest: %w", err)
	}

	m := &Manifest{logger: logger.With("component", "config_manifest"), profiles: map[powerlink.NodeId]cnProfile{}}
	for _, section := range cfg.Sections() {
		name := section.Name()
		if name == ini.DefaultSection {
			continue
		}
		nodeId, err := parseNodeSection(name)
		if err != nil {
			return nil, fmt.Errorf("section %q: %w", name, err)
		}
		profile, err := profileFromSection(section)
		if err != nil {
			return nil, fmt.Errorf("section %q: %w", name, err)
		}
		m.profiles[nodeId] = profile
	}
	return m, nil
}

func parseNodeSection(name string) (powerlink.NodeId, error) {
	id, err := strconv.ParseUint(strings.TrimPrefix(name, "node"), 10, 8)
	if err != nil {
		return 0, fmt.Errorf("expected \"node<id>\", got %q: %w", name, err)
	}
	return powerlink.NodeId(id), nil
}

func profileFromSection(section *ini.Section) (cnProfile, error) {
	parseU32 := func(key string) (uint32, error) {
		raw := section.Key(key).Value()
		if raw == "" {
			return 0, nil
		}
		v, err := strconv.ParseUint(strings.TrimSpace(raw), 0, 32)
		return uint32(v), err
	}
	parseU16 := func(key string) (uint16, error) {
		raw := section.Key(key).Value()
		if raw == "" {
			return 0, nil
		}
		v, err := strconv.ParseUint(strings.TrimSpace(raw), 0, 16)
		return uint16(v), err
	}

	deviceType, err := parseU32("DeviceType")
	if err != nil {
		return cnProfile{}, fmt.Errorf("DeviceType: %w", err)
	}
	vendorId, err := parseU32("VendorId")
	if err != nil {
		return cnProfile{}, fmt.Errorf("VendorId: %w", err)
	}
	productCode, err := parseU32("ProductCode")
	if err != nil {
		return cnProfile{}, fmt.Errorf("ProductCode: %w", err)
	}
	revision, err := parseU32("Revision")
	if err != nil {
		return cnProfile{}, fmt.Errorf("Revision: %w", err)
	}
	softwareDate, err := parseU16("SoftwareDate")
	if err != nil {
		return cnProfile{}, fmt.Errorf("SoftwareDate: %w", err)
	}
	softwareTime, err := parseU16("SoftwareTime")
	if err != nil {
		return cnProfile{}, fmt.Errorf("SoftwareTime: %w", err)
	}

	return cnProfile{
		identity: powerlink.Identity{
			DeviceType:  deviceType,
			VendorId:    vendorId,
			ProductCode: productCode,
			Revision:    revision,
		},
		softwareDate:   softwareDate,
		softwareTime:   softwareTime,
		conciseDCFPath: section.Key("ConciseDCF").String(),
	}, nil
}

// GetExpectedIdentity implements powerlink.ConfigurationInterface: ok is
// false for a node absent from the manifest, which BOOT_STEP1 treats as
// "no identity check configured" rather than a mismatch.
func (m *Manifest) GetExpectedIdentity(node powerlink.NodeId) (powerlink.Identity, bool) {
	p, ok := m.profiles[node]
	if !ok {
		return powerlink.Identity{}, false
	}
	return p.identity, true
}

// GetConfiguration reads and returns the Concise-DCF blob configured for
// node, for BOOT_STEP1 to download to OD 0x1F22 sub-index node (spec
// §4.4.4). No configuration date is compared: mn.Node starts the download
// whenever this returns a blob for a CN whose identity matched.
func (m *Manifest) GetConfiguration(node powerlink.NodeId) ([]byte, error) {
	p, ok := m.profiles[node]
	if !ok || p.conciseDCFPath == "" {
		return nil, fmt.Errorf("no Concise-DCF configured for node %d", node)
	}
	blob, err := os.ReadFile(p.conciseDCFPath)
	if err != nil {
		return nil, fmt.Errorf("reading Concise-DCF for node %d: %w", node, err)
	}
	return blob, nil
}

// IsSoftwareUpdateRequired reports whether the CN's reported software
// date/time (read from its IdentResponse, carried via OD 0x1F53/0x1F54)
// differs from the manifest's expectation; a node with no manifest entry
// is treated as requiring no update (spec §4.4.4 bit10 check is opt-in).
func (m *Manifest) IsSoftwareUpdateRequired(node powerlink.NodeId, receivedDate, receivedTime uint16) bool {
	p, ok := m.profiles[node]
	if !ok || (p.softwareDate == 0 && p.softwareTime == 0) {
		return false
	}
	return p.softwareDate != receivedDate || p.softwareTime != receivedTime
}
