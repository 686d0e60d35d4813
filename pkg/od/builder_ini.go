package od

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"gopkg.in/ini.v1"
)

// BuildFromINI loads an Object Dictionary from an XDD-derived INI file.
// Section names follow the same convention the teacher's EDS loader
// uses for CiA 301: "<index>" for a VAR entry, "<index>sub<subindex>"
// for one member of an ARRAY/RECORD entry. Keys per section are
// DataType, AccessType (ro/wo/rw/const), PDOMapping (rpdo/tpdo/none),
// DefaultValue and Persistent.
//
// This is a deliberately thin domain-stack adapter: full XDD (XML device
// description) parsing is out of scope (spec Non-goals, §9.2), but a
// site can still ship a flat INI snapshot of its OD instead of compiling
// one in Go, the way the teacher's network.go lets a node load from EDS.
func BuildFromINI(logger *slog.Logger, path string) (*ObjectDictionary, error) {
	cfg, err := ini.Load(path)
	if err != nil {
		return nil, fmt.Errorf("loading od ini: %w", err)
	}
	result := New(logger, NopPersistence{})
	lists := map[uint16]*VariableList{}
	listNames := map[uint16]string{}

	for _, section := range cfg.Sections() {
		name := section.Name()
		if name == ini.DefaultSection {
			continue
		}
		index, subIndex, isSub, err := parseSectionName(name)
		if err != nil {
			return nil, fmt.Errorf("section %q: %w", name, err)
		}
		v, err := variableFromSection(section, subIndex)
		if err != nil {
			return nil, fmt.Errorf("section %q: %w", name, err)
		}
		if !isSub {
			result.Insert(NewVarEntry(index, section.Key("Name").String(), v))
			continue
		}
		list, ok := lists[index]
		if !ok {
			kind := strings.ToLower(section.Key("ObjectType").String())
			if kind == "array" {
				list = NewArray()
			} else {
				list = NewRecord()
			}
			lists[index] = list
			listNames[index] = section.Key("ParentName").String()
		}
		list.AddSubObject(subIndex, v)
	}
	for index, list := range lists {
		result.Insert(NewListEntry(index, listNames[index], list))
	}
	return result, nil
}

func parseSectionName(name string) (index uint16, subIndex uint8, isSub bool, err error) {
	parts := strings.SplitN(name, "sub", 2)
	idx, err := strconv.ParseUint(strings.TrimPrefix(parts[0], "0x"), 16, 16)
	if err != nil {
		return 0, 0, false, err
	}
	if len(parts) == 1 {
		return uint16(idx), 0, false, nil
	}
	sub, err := strconv.ParseUint(parts[1], 16, 8)
	if err != nil {
		return 0, 0, false, err
	}
	return uint16(idx), uint8(sub), true, nil
}

func variableFromSection(section *ini.Section, subIndex uint8) (*Variable, error) {
	dtRaw, err := strconv.ParseUint(section.Key("DataType").Value(), 0, 8)
	if err != nil {
		return nil, fmt.Errorf("DataType: %w", err)
	}
	dataType := DataType(dtRaw)

	attr := parseAccessType(section.Key("AccessType").String())
	switch strings.ToLower(section.Key("PDOMapping").String()) {
	case "rpdo":
		attr |= MappableRPDO
	case "tpdo":
		attr |= MappableTPDO
	}

	value, err := encodeDefault(section.Key("DefaultValue").Value(), dataType)
	if err != nil {
		return nil, fmt.Errorf("DefaultValue: %w", err)
	}
	v, err := NewVariable(subIndex, section.Key("Name").String(), dataType, attr, value)
	if err != nil {
		return nil, err
	}
	v.Persistent, _ = section.Key("Persistent").Bool()
	return v, nil
}

func parseAccessType(s string) Attribute {
	switch strings.ToLower(s) {
	case "ro":
		return AccessRO
	case "wo":
		return AccessWO
	case "rw", "rww", "rwr":
		return AccessRW
	default:
		return AccessConst
	}
}

// encodeDefault parses a decimal or 0x-prefixed hex literal into the
// data type's fixed-size little-endian wire representation.
func encodeDefault(raw string, dt DataType) ([]byte, error) {
	if raw == "" {
		raw = "0"
	}
	size := dt.FixedSize()
	if size == 0 {
		return []byte(raw), nil
	}
	u, err := strconv.ParseUint(strings.TrimSpace(raw), 0, size*8)
	if err != nil {
		return nil, err
	}
	buf := make([]byte, size)
	for i := 0; i < size; i++ {
		buf[i] = byte(u >> (8 * i))
	}
	return buf, nil
}
