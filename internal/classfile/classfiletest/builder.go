// Package classfiletest builds small, valid class files for tests.
package classfiletest

import (
	"bytes"
	"encoding/binary"
)

// Access flags.
const (
	Public    uint16 = 0x0001
	Private   uint16 = 0x0002
	Protected uint16 = 0x0004
	Static    uint16 = 0x0008
	Synthetic uint16 = 0x1000
	Module    uint16 = 0x8000
)

// Class is a class-file builder. Names use internal form (com/example/Foo).
type Class struct {
	access     uint16
	name       string
	super      string
	interfaces []string
	signature  string
	annots     []string
	refs       []string
	fields     []*Member
	methods    []*Member

	pool  [][]byte
	utf8s map[string]uint16
	class map[string]uint16
}

// Member is a field or method under construction.
type Member struct {
	access     uint16
	name       string
	descriptor string
	signature  string
	throws     []string
	annots     []string
	locals     []string
}

// NewClass starts a public class extending java/lang/Object.
func NewClass(name string) *Class {
	return &Class{
		access: Public,
		name:   name,
		super:  "java/lang/Object",
	}
}

// Access replaces the class access flags.
func (c *Class) Access(flags uint16) *Class {
	c.access = flags
	return c
}

// Extends sets the super class.
func (c *Class) Extends(super string) *Class {
	c.super = super
	return c
}

// Implements adds interfaces.
func (c *Class) Implements(ifaces ...string) *Class {
	c.interfaces = append(c.interfaces, ifaces...)
	return c
}

// Signature sets the class generic signature.
func (c *Class) Signature(sig string) *Class {
	c.signature = sig
	return c
}

// Annotate adds a runtime-visible class annotation by descriptor.
func (c *Class) Annotate(desc string) *Class {
	c.annots = append(c.annots, desc)
	return c
}

// Uses adds a Class constant, the way a method body referencing a type would.
func (c *Class) Uses(names ...string) *Class {
	c.refs = append(c.refs, names...)
	return c
}

// Field adds a field and returns it for further configuration.
func (c *Class) Field(access uint16, name, descriptor string) *Member {
	m := &Member{access: access, name: name, descriptor: descriptor}
	c.fields = append(c.fields, m)
	return m
}

// Method adds a method and returns it for further configuration.
func (c *Class) Method(access uint16, name, descriptor string) *Member {
	m := &Member{access: access, name: name, descriptor: descriptor}
	c.methods = append(c.methods, m)
	return m
}

// Signature sets the member generic signature.
func (m *Member) Signature(sig string) *Member {
	m.signature = sig
	return m
}

// Throws adds declared exceptions.
func (m *Member) Throws(names ...string) *Member {
	m.throws = append(m.throws, names...)
	return m
}

// Annotate adds a runtime-visible member annotation by descriptor.
func (m *Member) Annotate(desc string) *Member {
	m.annots = append(m.annots, desc)
	return m
}

// Local adds a local variable with the given descriptor; the method gets a
// Code attribute carrying a LocalVariableTable.
func (m *Member) Local(desc string) *Member {
	m.locals = append(m.locals, desc)
	return m
}

// Bytes serializes the class.
func (c *Class) Bytes() []byte {
	c.pool = nil
	c.utf8s = make(map[string]uint16)
	c.class = make(map[string]uint16)

	this := c.classRef(c.name)
	var super uint16
	if c.super != "" {
		super = c.classRef(c.super)
	}
	ifaces := make([]uint16, len(c.interfaces))
	for i, n := range c.interfaces {
		ifaces[i] = c.classRef(n)
	}
	for _, r := range c.refs {
		c.classRef(r)
	}

	var body bytes.Buffer
	put16(&body, c.access)
	put16(&body, this)
	put16(&body, super)
	put16(&body, uint16(len(ifaces)))
	for _, i := range ifaces {
		put16(&body, i)
	}
	c.writeMembers(&body, c.fields)
	c.writeMembers(&body, c.methods)

	var attrs [][]byte
	if c.signature != "" {
		attrs = append(attrs, c.signatureAttr(c.signature))
	}
	if len(c.annots) > 0 {
		attrs = append(attrs, c.annotationsAttr(c.annots))
	}
	put16(&body, uint16(len(attrs)))
	for _, a := range attrs {
		body.Write(a)
	}

	var out bytes.Buffer
	put32(&out, 0xCAFEBABE)
	put16(&out, 0)  // minor
	put16(&out, 52) // major: Java 8
	put16(&out, uint16(len(c.pool)+1))
	for _, e := range c.pool {
		out.Write(e)
	}
	out.Write(body.Bytes())
	return out.Bytes()
}

func (c *Class) writeMembers(w *bytes.Buffer, members []*Member) {
	put16(w, uint16(len(members)))
	for _, m := range members {
		put16(w, m.access)
		put16(w, c.utf8(m.name))
		put16(w, c.utf8(m.descriptor))

		var attrs [][]byte
		if m.signature != "" {
			attrs = append(attrs, c.signatureAttr(m.signature))
		}
		if len(m.throws) > 0 {
			var data bytes.Buffer
			put16(&data, uint16(len(m.throws)))
			for _, t := range m.throws {
				put16(&data, c.classRef(t))
			}
			attrs = append(attrs, c.attr("Exceptions", data.Bytes()))
		}
		if len(m.annots) > 0 {
			attrs = append(attrs, c.annotationsAttr(m.annots))
		}
		if len(m.locals) > 0 {
			attrs = append(attrs, c.codeAttr(m.locals))
		}
		put16(w, uint16(len(attrs)))
		for _, a := range attrs {
			w.Write(a)
		}
	}
}

func (c *Class) codeAttr(locals []string) []byte {
	var lvt bytes.Buffer
	put16(&lvt, uint16(len(locals)))
	for i, desc := range locals {
		put16(&lvt, 0) // start_pc
		put16(&lvt, 1) // length
		put16(&lvt, c.utf8("local"+string(rune('a'+i))))
		put16(&lvt, c.utf8(desc))
		put16(&lvt, uint16(i))
	}
	lvtAttr := c.attr("LocalVariableTable", lvt.Bytes())

	var code bytes.Buffer
	put16(&code, 1)                   // max_stack
	put16(&code, uint16(len(locals))) // max_locals
	put32(&code, 1)                   // code_length
	code.WriteByte(0xB1)              // return
	put16(&code, 0)                   // exception_table_length
	put16(&code, 1)                   // attributes_count
	code.Write(lvtAttr)
	return c.attr("Code", code.Bytes())
}

func (c *Class) signatureAttr(sig string) []byte {
	var data bytes.Buffer
	put16(&data, c.utf8(sig))
	return c.attr("Signature", data.Bytes())
}

func (c *Class) annotationsAttr(descs []string) []byte {
	var data bytes.Buffer
	put16(&data, uint16(len(descs)))
	for _, d := range descs {
		put16(&data, c.utf8(d))
		put16(&data, 0) // num_element_value_pairs
	}
	return c.attr("RuntimeVisibleAnnotations", data.Bytes())
}

func (c *Class) attr(name string, data []byte) []byte {
	var out bytes.Buffer
	put16(&out, c.utf8(name))
	put32(&out, uint32(len(data)))
	out.Write(data)
	return out.Bytes()
}

func (c *Class) utf8(s string) uint16 {
	if idx, ok := c.utf8s[s]; ok {
		return idx
	}
	var e bytes.Buffer
	e.WriteByte(1)
	put16(&e, uint16(len(s)))
	e.WriteString(s)
	c.pool = append(c.pool, e.Bytes())
	idx := uint16(len(c.pool))
	c.utf8s[s] = idx
	return idx
}

func (c *Class) classRef(name string) uint16 {
	if idx, ok := c.class[name]; ok {
		return idx
	}
	nameIdx := c.utf8(name)
	var e bytes.Buffer
	e.WriteByte(7)
	put16(&e, nameIdx)
	c.pool = append(c.pool, e.Bytes())
	idx := uint16(len(c.pool))
	c.class[name] = idx
	return idx
}

func put16(w *bytes.Buffer, v uint16) {
	_ = binary.Write(w, binary.BigEndian, v)
}

func put32(w *bytes.Buffer, v uint32) {
	_ = binary.Write(w, binary.BigEndian, v)
}
