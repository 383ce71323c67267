package schema

import (
	"fmt"
	"strings"
)

// resolve runs the post-parse fixup: dangling type references are patched
// from the message map first, then the enum map; deferred option values
// (enum-typed defaults) are looked up by constant name; service method
// references are bound where the referent exists. A schema with leftover
// entries in either side table is rejected outright, never returned
// partially resolved.
func (s *Schema) resolve() error {
	var remaining []unresolvedRef
	for _, r := range s.unresolvedRefs {
		var t Type
		if m, ok := s.messages[r.name]; ok {
			t = m
		} else if e, ok := s.enums[r.name]; ok {
			t = e
		} else {
			remaining = append(remaining, r)
			continue
		}
		switch r.slot {
		case slotType:
			r.field.Type = t
		case slotMapKey:
			r.field.Type.(*MapType).Key = t
		case slotMapValue:
			r.field.Type.(*MapType).Value = t
		}
	}
	s.unresolvedRefs = remaining
	if len(remaining) > 0 {
		return fmt.Errorf("%w: %s", ErrUnresolvedReferences, strings.Join(s.UnresolvedReferences(), ", "))
	}

	var remainingOpts []unresolvedOption
	for _, o := range s.unresolvedOpts {
		e, ok := o.field.Type.(*EnumDef)
		if !ok {
			remainingOpts = append(remainingOpts, o)
			continue
		}
		number, ok := e.Number(strings.Trim(o.raw, `"`))
		if !ok {
			remainingOpts = append(remainingOpts, o)
			continue
		}
		o.field.Options[o.key] = number
	}
	s.unresolvedOpts = remainingOpts
	if len(remainingOpts) > 0 {
		return fmt.Errorf("%w: %s", ErrUnresolvedOptions, strings.Join(s.UnresolvedOptions(), ", "))
	}

	for _, svc := range s.services {
		for _, method := range svc.Methods {
			if m, ok := s.messages[method.InputName]; ok {
				method.Input = m
			}
			if m, ok := s.messages[method.OutputName]; ok {
				method.Output = m
			}
		}
	}
	return nil
}
