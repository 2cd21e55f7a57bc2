// Package classfile parses JVM class files far enough to answer one question:
// which other classes does this class refer to, in total and through its
// externally visible API surface.
package classfile

import (
	"errors"
	"fmt"
	"strings"
)

// ErrMalformed is wrapped by every parse failure.
var ErrMalformed = errors.New("malformed class file")

const magic = 0xCAFEBABE

// Access flags used by the reference extraction.
const (
	AccPublic    uint16 = 0x0001
	AccPrivate   uint16 = 0x0002
	AccProtected uint16 = 0x0004
	AccInterface uint16 = 0x0200
	AccSynthetic uint16 = 0x1000
	AccModule    uint16 = 0x8000
)

// Constant pool tags.
const (
	tagUtf8               = 1
	tagInteger            = 3
	tagFloat              = 4
	tagLong               = 5
	tagDouble             = 6
	tagClass              = 7
	tagString             = 8
	tagFieldref           = 9
	tagMethodref          = 10
	tagInterfaceMethodref = 11
	tagNameAndType        = 12
	tagMethodHandle       = 15
	tagMethodType         = 16
	tagDynamic            = 17
	tagInvokeDynamic      = 18
	tagModule             = 19
	tagPackage            = 20
)

// constant is one constant pool slot. For Utf8 only text is set; for every
// other tag a and b hold the raw u2 operands (b unused for single-index tags).
type constant struct {
	tag  uint8
	text string
	a, b uint16
}

// Attribute is a raw, unparsed attribute.
type Attribute struct {
	Name string
	Data []byte
}

// Member is a field or a method.
type Member struct {
	AccessFlags uint16
	Name        string
	Descriptor  string
	Attributes  []Attribute
}

// IsVisible reports whether the member is part of the API surface (public or
// protected, not compiler-generated).
func (m *Member) IsVisible() bool {
	return m.AccessFlags&(AccPublic|AccProtected) != 0 && m.AccessFlags&AccSynthetic == 0
}

// ClassFile is the parsed form of a .class file.
type ClassFile struct {
	MinorVersion uint16
	MajorVersion uint16
	AccessFlags  uint16

	// ThisClass, SuperClass and Interfaces are in internal form (com/example/Foo).
	ThisClass  string
	SuperClass string
	Interfaces []string

	Fields     []Member
	Methods    []Member
	Attributes []Attribute

	pool []constant
}

// Parse decodes a class file. Any structural problem returns an error
// wrapping ErrMalformed.
func Parse(data []byte) (*ClassFile, error) {
	r := newReader(data)

	if m := r.u4(); r.err == nil && m != magic {
		return nil, fmt.Errorf("%w: bad magic 0x%08X", ErrMalformed, m)
	}

	cf := &ClassFile{}
	cf.MinorVersion = r.u2()
	cf.MajorVersion = r.u2()

	if err := cf.readConstantPool(r); err != nil {
		return nil, err
	}

	cf.AccessFlags = r.u2()

	var err error
	if cf.ThisClass, err = cf.className(r.u2()); err != nil {
		return nil, err
	}
	if super := r.u2(); super != 0 {
		if cf.SuperClass, err = cf.className(super); err != nil {
			return nil, err
		}
	}

	count := int(r.u2())
	cf.Interfaces = make([]string, 0, count)
	for i := 0; i < count && r.err == nil; i++ {
		name, err := cf.className(r.u2())
		if err != nil {
			return nil, err
		}
		cf.Interfaces = append(cf.Interfaces, name)
	}

	if cf.Fields, err = cf.readMembers(r); err != nil {
		return nil, err
	}
	if cf.Methods, err = cf.readMembers(r); err != nil {
		return nil, err
	}
	if cf.Attributes, err = cf.readAttributes(r); err != nil {
		return nil, err
	}

	if r.err != nil {
		return nil, r.err
	}
	if r.remaining() != 0 {
		return nil, fmt.Errorf("%w: %d trailing bytes", ErrMalformed, r.remaining())
	}
	return cf, nil
}

func (cf *ClassFile) readConstantPool(r *reader) error {
	count := int(r.u2())
	if r.err != nil {
		return r.err
	}
	if count == 0 {
		return fmt.Errorf("%w: empty constant pool", ErrMalformed)
	}

	cf.pool = make([]constant, count)
	for i := 1; i < count; i++ {
		tag := r.u1()
		c := constant{tag: tag}
		switch tag {
		case tagUtf8:
			n := int(r.u2())
			c.text = decodeModifiedUTF8(r.bytes(n))
		case tagInteger, tagFloat:
			r.skip(4)
		case tagLong, tagDouble:
			r.skip(8)
			cf.pool[i] = c
			// Eight-byte constants take two slots; the second is unusable.
			i++
			continue
		case tagClass, tagString, tagMethodType, tagModule, tagPackage:
			c.a = r.u2()
		case tagFieldref, tagMethodref, tagInterfaceMethodref, tagNameAndType,
			tagDynamic, tagInvokeDynamic:
			c.a = r.u2()
			c.b = r.u2()
		case tagMethodHandle:
			c.a = uint16(r.u1())
			c.b = r.u2()
		default:
			if r.err != nil {
				return r.err
			}
			return fmt.Errorf("%w: unknown constant pool tag %d at index %d", ErrMalformed, tag, i)
		}
		if r.err != nil {
			return r.err
		}
		cf.pool[i] = c
	}
	return nil
}

func (cf *ClassFile) readMembers(r *reader) ([]Member, error) {
	count := int(r.u2())
	members := make([]Member, 0, count)
	for i := 0; i < count; i++ {
		m := Member{AccessFlags: r.u2()}
		var err error
		if m.Name, err = cf.utf8(r.u2()); err != nil {
			return nil, err
		}
		if m.Descriptor, err = cf.utf8(r.u2()); err != nil {
			return nil, err
		}
		if m.Attributes, err = cf.readAttributes(r); err != nil {
			return nil, err
		}
		members = append(members, m)
	}
	return members, r.err
}

func (cf *ClassFile) readAttributes(r *reader) ([]Attribute, error) {
	count := int(r.u2())
	attrs := make([]Attribute, 0, count)
	for i := 0; i < count; i++ {
		name, err := cf.utf8(r.u2())
		if err != nil {
			return nil, err
		}
		length := int(r.u4())
		data := r.bytes(length)
		if r.err != nil {
			return nil, r.err
		}
		attrs = append(attrs, Attribute{Name: name, Data: data})
	}
	return attrs, r.err
}

func (cf *ClassFile) entry(index uint16, tag uint8) (constant, error) {
	if index == 0 || int(index) >= len(cf.pool) {
		return constant{}, fmt.Errorf("%w: constant pool index %d out of range", ErrMalformed, index)
	}
	c := cf.pool[index]
	if c.tag != tag {
		return constant{}, fmt.Errorf("%w: constant %d has tag %d, want %d", ErrMalformed, index, c.tag, tag)
	}
	return c, nil
}

func (cf *ClassFile) utf8(index uint16) (string, error) {
	c, err := cf.entry(index, tagUtf8)
	if err != nil {
		return "", err
	}
	return c.text, nil
}

func (cf *ClassFile) className(index uint16) (string, error) {
	c, err := cf.entry(index, tagClass)
	if err != nil {
		return "", err
	}
	return cf.utf8(c.a)
}

// Name returns the binary (dot-separated) name of the class.
func (cf *ClassFile) Name() string {
	return BinaryName(cf.ThisClass)
}

// IsPublic reports whether the class itself is public.
func (cf *ClassFile) IsPublic() bool {
	return cf.AccessFlags&AccPublic != 0
}

// IsModuleInfo reports whether this is a module-info descriptor rather than a class.
func (cf *ClassFile) IsModuleInfo() bool {
	return cf.AccessFlags&AccModule != 0
}

// BinaryName converts an internal name (com/example/Foo$Bar) to its binary
// form (com.example.Foo$Bar).
func BinaryName(internal string) string {
	return strings.ReplaceAll(internal, "/", ".")
}

// decodeModifiedUTF8 decodes the JVM's modified UTF-8. It differs from standard
// UTF-8 only in the encoding of U+0000 and of supplementary characters, which
// are written as two three-byte surrogates.
func decodeModifiedUTF8(b []byte) string {
	ascii := true
	for _, c := range b {
		if c >= 0x80 {
			ascii = false
			break
		}
	}
	if ascii {
		return string(b)
	}

	runes := make([]rune, 0, len(b))
	for i := 0; i < len(b); {
		c := b[i]
		switch {
		case c < 0x80:
			runes = append(runes, rune(c))
			i++
		case c&0xE0 == 0xC0 && i+1 < len(b):
			runes = append(runes, rune(c&0x1F)<<6|rune(b[i+1]&0x3F))
			i += 2
		case c&0xF0 == 0xE0 && i+2 < len(b):
			runes = append(runes, rune(c&0x0F)<<12|rune(b[i+1]&0x3F)<<6|rune(b[i+2]&0x3F))
			i += 3
		default:
			runes = append(runes, '\uFFFD')
			i++
		}
	}
	// Recombine surrogate pairs.
	out := make([]rune, 0, len(runes))
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		if r >= 0xD800 && r <= 0xDBFF && i+1 < len(runes) && runes[i+1] >= 0xDC00 && runes[i+1] <= 0xDFFF {
			out = append(out, 0x10000+(r-0xD800)<<10+(runes[i+1]-0xDC00))
			i++
			continue
		}
		out = append(out, r)
	}
	return string(out)
}
