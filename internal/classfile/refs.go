package classfile

import (
	"fmt"
	"sort"
)

// Attribute names with class references.
const (
	attrCode                                 = "Code"
	attrSignature                            = "Signature"
	attrExceptions                           = "Exceptions"
	attrLocalVariableTable                   = "LocalVariableTable"
	attrLocalVariableTypeTable               = "LocalVariableTypeTable"
	attrRecord                               = "Record"
	attrAnnotationDefault                    = "AnnotationDefault"
	attrRuntimeVisibleAnnotations            = "RuntimeVisibleAnnotations"
	attrRuntimeInvisibleAnnotations          = "RuntimeInvisibleAnnotations"
	attrRuntimeVisibleParameterAnnotations   = "RuntimeVisibleParameterAnnotations"
	attrRuntimeInvisibleParameterAnnotations = "RuntimeInvisibleParameterAnnotations"
	attrRuntimeVisibleTypeAnnotations        = "RuntimeVisibleTypeAnnotations"
	attrRuntimeInvisibleTypeAnnotations      = "RuntimeInvisibleTypeAnnotations"
)

// refSet collects class references in binary form, skipping the owning class.
type refSet struct {
	self  string
	names map[string]struct{}
}

func newRefSet(self string) *refSet {
	return &refSet{self: self, names: make(map[string]struct{})}
}

// addInternal records an internal class name or an array descriptor.
func (s *refSet) addInternal(name string) {
	if name == "" {
		return
	}
	if name[0] == '[' {
		scanSignature(name, s.addInternal)
		return
	}
	if name == s.self {
		return
	}
	s.names[BinaryName(name)] = struct{}{}
}

func (s *refSet) addSignature(sig string) {
	scanSignature(sig, s.addInternal)
}

func (s *refSet) sorted() []string {
	out := make([]string, 0, len(s.names))
	for n := range s.names {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// AllReferences returns every class symbolically referenced anywhere in the
// class file: constant pool, member descriptors and signatures, annotations,
// declared exceptions and local variable debug tables. The class itself is
// excluded. Names are binary, sorted and unique. Module descriptors name
// modules and packages, not classes, and yield nothing.
func (cf *ClassFile) AllReferences() ([]string, error) {
	refs := newRefSet(cf.ThisClass)
	if cf.IsModuleInfo() {
		return refs.sorted(), nil
	}

	for _, c := range cf.pool {
		switch c.tag {
		case tagClass:
			name, err := cf.utf8(c.a)
			if err != nil {
				return nil, err
			}
			refs.addInternal(name)
		case tagNameAndType:
			desc, err := cf.utf8(c.b)
			if err != nil {
				return nil, err
			}
			refs.addSignature(desc)
		case tagMethodType:
			desc, err := cf.utf8(c.a)
			if err != nil {
				return nil, err
			}
			refs.addSignature(desc)
		}
	}

	if err := cf.collectAttributes(refs, cf.Attributes, true); err != nil {
		return nil, err
	}
	for _, members := range [][]Member{cf.Fields, cf.Methods} {
		for i := range members {
			m := &members[i]
			refs.addSignature(m.Descriptor)
			if err := cf.collectAttributes(refs, m.Attributes, true); err != nil {
				return nil, fmt.Errorf("member %s%s: %w", m.Name, m.Descriptor, err)
			}
		}
	}
	return refs.sorted(), nil
}

// PublicReferences returns the classes referenced through the externally
// visible surface: super types, class signature and annotations, and the
// types of public or protected members. Non-public classes expose nothing.
func (cf *ClassFile) PublicReferences() ([]string, error) {
	refs := newRefSet(cf.ThisClass)
	if !cf.IsPublic() || cf.IsModuleInfo() {
		return refs.sorted(), nil
	}

	refs.addInternal(cf.SuperClass)
	for _, iface := range cf.Interfaces {
		refs.addInternal(iface)
	}
	if err := cf.collectAttributes(refs, cf.Attributes, false); err != nil {
		return nil, err
	}

	for _, members := range [][]Member{cf.Fields, cf.Methods} {
		for i := range members {
			m := &members[i]
			if !m.IsVisible() {
				continue
			}
			refs.addSignature(m.Descriptor)
			if err := cf.collectAttributes(refs, m.Attributes, false); err != nil {
				return nil, fmt.Errorf("member %s%s: %w", m.Name, m.Descriptor, err)
			}
		}
	}
	return refs.sorted(), nil
}

// collectAttributes adds references from attributes. Code bodies and record
// components are only inspected when deep is set.
func (cf *ClassFile) collectAttributes(refs *refSet, attrs []Attribute, deep bool) error {
	for _, a := range attrs {
		var err error
		switch a.Name {
		case attrSignature:
			err = cf.collectSignatureAttr(refs, a.Data)
		case attrExceptions:
			err = cf.collectExceptions(refs, a.Data)
		case attrRuntimeVisibleAnnotations, attrRuntimeInvisibleAnnotations:
			err = cf.collectAnnotations(refs, newReader(a.Data))
		case attrRuntimeVisibleParameterAnnotations, attrRuntimeInvisibleParameterAnnotations:
			err = cf.collectParameterAnnotations(refs, a.Data)
		case attrRuntimeVisibleTypeAnnotations, attrRuntimeInvisibleTypeAnnotations:
			err = cf.collectTypeAnnotations(refs, newReader(a.Data))
		case attrAnnotationDefault:
			r := newReader(a.Data)
			err = cf.collectElementValue(refs, r)
			if err == nil {
				err = r.err
			}
		case attrCode:
			if deep {
				err = cf.collectCode(refs, a.Data)
			}
		case attrLocalVariableTable, attrLocalVariableTypeTable:
			if deep {
				err = cf.collectLocalVariables(refs, a.Data)
			}
		case attrRecord:
			if deep {
				err = cf.collectRecord(refs, a.Data)
			}
		}
		if err != nil {
			return fmt.Errorf("attribute %s: %w", a.Name, err)
		}
	}
	return nil
}

func (cf *ClassFile) collectSignatureAttr(refs *refSet, data []byte) error {
	r := newReader(data)
	sig, err := cf.utf8(r.u2())
	if r.err != nil {
		return r.err
	}
	if err != nil {
		return err
	}
	refs.addSignature(sig)
	return nil
}

func (cf *ClassFile) collectExceptions(refs *refSet, data []byte) error {
	r := newReader(data)
	n := int(r.u2())
	for i := 0; i < n && r.err == nil; i++ {
		name, err := cf.className(r.u2())
		if r.err != nil {
			break
		}
		if err != nil {
			return err
		}
		refs.addInternal(name)
	}
	return r.err
}

func (cf *ClassFile) collectAnnotations(refs *refSet, r *reader) error {
	n := int(r.u2())
	for i := 0; i < n && r.err == nil; i++ {
		if err := cf.collectAnnotation(refs, r); err != nil {
			return err
		}
	}
	return r.err
}

func (cf *ClassFile) collectParameterAnnotations(refs *refSet, data []byte) error {
	r := newReader(data)
	params := int(r.u1())
	for i := 0; i < params && r.err == nil; i++ {
		if err := cf.collectAnnotations(refs, r); err != nil {
			return err
		}
	}
	return r.err
}

func (cf *ClassFile) collectAnnotation(refs *refSet, r *reader) error {
	typeIndex := r.u2()
	if r.err != nil {
		return r.err
	}
	desc, err := cf.utf8(typeIndex)
	if err != nil {
		return err
	}
	refs.addSignature(desc)

	pairs := int(r.u2())
	for i := 0; i < pairs && r.err == nil; i++ {
		r.u2() // element_name_index
		if err := cf.collectElementValue(refs, r); err != nil {
			return err
		}
	}
	return r.err
}

func (cf *ClassFile) collectElementValue(refs *refSet, r *reader) error {
	tag := r.u1()
	if r.err != nil {
		return r.err
	}
	switch tag {
	case 'B', 'C', 'D', 'F', 'I', 'J', 'S', 'Z', 's':
		r.u2()
	case 'e':
		typeIndex := r.u2()
		r.u2() // const_name_index
		if r.err != nil {
			return r.err
		}
		desc, err := cf.utf8(typeIndex)
		if err != nil {
			return err
		}
		refs.addSignature(desc)
	case 'c':
		index := r.u2()
		if r.err != nil {
			return r.err
		}
		desc, err := cf.utf8(index)
		if err != nil {
			return err
		}
		refs.addSignature(desc)
	case '@':
		return cf.collectAnnotation(refs, r)
	case '[':
		n := int(r.u2())
		for i := 0; i < n && r.err == nil; i++ {
			if err := cf.collectElementValue(refs, r); err != nil {
				return err
			}
		}
	default:
		return fmt.Errorf("%w: unknown element_value tag %q", ErrMalformed, tag)
	}
	return r.err
}

func (cf *ClassFile) collectTypeAnnotations(refs *refSet, r *reader) error {
	n := int(r.u2())
	for i := 0; i < n && r.err == nil; i++ {
		if err := skipTypeAnnotationTarget(r); err != nil {
			return err
		}
		pathLength := int(r.u1())
		r.skip(2 * pathLength)
		if err := cf.collectAnnotation(refs, r); err != nil {
			return err
		}
	}
	return r.err
}

func skipTypeAnnotationTarget(r *reader) error {
	target := r.u1()
	switch {
	case target == 0x00 || target == 0x01 || target == 0x16:
		r.skip(1)
	case target == 0x10 || target == 0x17 || target == 0x42:
		r.skip(2)
	case target == 0x11 || target == 0x12:
		r.skip(2)
	case target >= 0x13 && target <= 0x15:
	case target == 0x40 || target == 0x41:
		n := int(r.u2())
		r.skip(6 * n)
	case target >= 0x43 && target <= 0x46:
		r.skip(2)
	case target >= 0x47 && target <= 0x4B:
		r.skip(3)
	default:
		if r.err != nil {
			return r.err
		}
		return fmt.Errorf("%w: unknown type annotation target 0x%02X", ErrMalformed, target)
	}
	return r.err
}

func (cf *ClassFile) collectCode(refs *refSet, data []byte) error {
	r := newReader(data)
	r.skip(4) // max_stack, max_locals
	codeLength := int(r.u4())
	r.skip(codeLength)
	// Catch types are Class constants and already covered by the pool walk.
	handlers := int(r.u2())
	r.skip(8 * handlers)
	if r.err != nil {
		return r.err
	}
	attrs, err := cf.readAttributes(r)
	if err != nil {
		return err
	}
	return cf.collectAttributes(refs, attrs, true)
}

func (cf *ClassFile) collectLocalVariables(refs *refSet, data []byte) error {
	r := newReader(data)
	n := int(r.u2())
	for i := 0; i < n && r.err == nil; i++ {
		r.skip(6) // start_pc, length, name_index
		descIndex := r.u2()
		r.skip(2) // index
		if r.err != nil {
			break
		}
		desc, err := cf.utf8(descIndex)
		if err != nil {
			return err
		}
		refs.addSignature(desc)
	}
	return r.err
}

func (cf *ClassFile) collectRecord(refs *refSet, data []byte) error {
	r := newReader(data)
	n := int(r.u2())
	for i := 0; i < n && r.err == nil; i++ {
		r.u2() // name_index
		descIndex := r.u2()
		if r.err != nil {
			break
		}
		desc, err := cf.utf8(descIndex)
		if err != nil {
			return err
		}
		refs.addSignature(desc)
		attrs, err := cf.readAttributes(r)
		if err != nil {
			return err
		}
		if err := cf.collectAttributes(refs, attrs, true); err != nil {
			return err
		}
	}
	return r.err
}
