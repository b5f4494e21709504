package wisp

import "fmt"

// MemberRefDesc is what the compiler emits per this.X/super.X
// reference accumulated by a class body (spec.md §4.G "ClassCompiler
// records ... this.*/super.* property names"). The VM resolves these
// once, right after a class body finishes compiling, via ResolveMembers.
type MemberRefDesc struct {
	Name      string
	FromSuper bool
}

// ResolveMembers implements the RESOLVE_MEMBERS opcode: for each
// descriptor, it resolves Name to either an instance-field offset or a
// class-member storage cell and appends the result to class.MemberRefs
// in order, so later GET_MEMBER_PROPERTY/SET_MEMBER_PROPERTY/GET_SUPER
// instructions can index MemberRefs directly instead of doing a
// name lookup (spec.md §4.H).
//
// Per spec.md §9's Open Question, an undefined this.X and an undefined
// super.X report the identical message; this implementation does not
// distinguish them.
func (ctx *Context) ResolveMembers(class *ObjClass, descs []MemberRefDesc) error {
	class.MemberRefs = make([]*MemberRef, len(descs))
	for i, d := range descs {
		ref, err := resolveOneMember(class, d)
		if err != nil {
			return err
		}
		class.MemberRefs[i] = ref
	}
	return nil
}

func resolveOneMember(class *ObjClass, d MemberRefDesc) (*MemberRef, error) {
	searchFrom := class
	if d.FromSuper {
		if class.Super == nil {
			return nil, fmt.Errorf("undefined member reference: %s", d.Name)
		}
		searchFrom = class.Super
	}

	// Fields only exist on `this`, never through `super` (a field is
	// part of the instance's single dense layout regardless of which
	// class declared it), so only the this.* case checks FieldIndex.
	if !d.FromSuper {
		if idx, ok := class.FieldIndex[d.Name]; ok {
			return &MemberRef{Name: d.Name, IsField: true, FieldIndex: idx}, nil
		}
	}

	if cell, ok := resolveMethodCell(searchFrom, d.Name); ok {
		return &MemberRef{Name: d.Name, IsField: false, ValueCell: cell}, nil
	}
	if idx, ok := searchFrom.StaticIndex[d.Name]; ok {
		return &MemberRef{Name: d.Name, IsField: false, ValueCell: searchFrom.StaticValues[idx]}, nil
	}

	return nil, fmt.Errorf("undefined member reference: %s", d.Name)
}

// GetMemberRef dereferences a resolved member reference against a
// receiving instance, returning a pointer to the live Value cell: a
// field slot inside the instance for field refs, or the shared class
// storage cell for method/static refs (spec.md §4.H).
func GetMemberRef(ref *MemberRef, instance *ObjInstance) *Value {
	if ref.IsField {
		return &instance.Fields[ref.FieldIndex]
	}
	return ref.ValueCell
}
