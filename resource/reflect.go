package resource

import (
	"fmt"
	"reflect"

	"github.com/everest-org/everest/entity"
)

// Entities are pointers to structs; the helpers below resolve declared
// entity attribute paths against them.

func newEntity(etype reflect.Type) (entity.Entity, error) {
	if etype.Kind() != reflect.Pointer || etype.Elem().Kind() != reflect.Struct {
		return nil, fmt.Errorf("%s: entity type must be a struct pointer: %w", etype, ErrInvalidDeclaration)
	}
	ent, ok := reflect.New(etype.Elem()).Interface().(entity.Entity)
	if !ok {
		return nil, fmt.Errorf("%s: %w", etype, ErrWrongEntity)
	}
	return ent, nil
}

func entityField(ent entity.Entity, path string) (reflect.Value, error) {
	value := reflect.ValueOf(ent)
	if value.Kind() != reflect.Pointer || value.IsNil() {
		return reflect.Value{}, fmt.Errorf("%T: %w", ent, ErrWrongEntity)
	}
	value = value.Elem()
	if value.Kind() != reflect.Struct {
		return reflect.Value{}, fmt.Errorf("%T: %w", ent, ErrWrongEntity)
	}
	field := value.FieldByName(path)
	if !field.IsValid() {
		return reflect.Value{}, fmt.Errorf("%T.%s: %w", ent, path, ErrUnknownAttribute)
	}
	return field, nil
}

func setEntityField(ent entity.Entity, path string, value any) error {
	field, err := entityField(ent, path)
	if err != nil {
		return err
	}
	rv := reflect.ValueOf(value)
	if !rv.IsValid() {
		field.Set(reflect.Zero(field.Type()))
		return nil
	}
	if !rv.Type().AssignableTo(field.Type()) {
		if rv.Type().ConvertibleTo(field.Type()) {
			rv = rv.Convert(field.Type())
		} else {
			return fmt.Errorf("%T.%s: cannot assign %T: %w", ent, path, value, ErrWrongEntity)
		}
	}
	field.Set(rv)
	return nil
}

func nestedEntity(ent entity.Entity, path string) (entity.Entity, error) {
	field, err := entityField(ent, path)
	if err != nil {
		return nil, err
	}
	if field.Kind() != reflect.Pointer || field.IsNil() {
		return nil, nil
	}
	nested, ok := field.Interface().(entity.Entity)
	if !ok {
		return nil, fmt.Errorf("%T.%s: %w", ent, path, ErrWrongEntity)
	}
	return nested, nil
}

// childRelationship exposes a slice-of-entities field as the
// relationship backing a nested collection's aggregate.
func childRelationship(parent entity.Entity, path string) (*entity.Relationship, error) {
	if _, err := entityField(parent, path); err != nil {
		return nil, err
	}
	return &entity.Relationship{
		Parent: parent,
		Children: func() []entity.Entity {
			field, _ := entityField(parent, path)
			out := make([]entity.Entity, 0, field.Len())
			for i := 0; i < field.Len(); i++ {
				item := field.Index(i)
				if item.IsNil() {
					continue
				}
				out = append(out, item.Interface().(entity.Entity))
			}
			return out
		},
		Append: func(child entity.Entity) {
			field, _ := entityField(parent, path)
			field.Set(reflect.Append(field, reflect.ValueOf(child)))
		},
		Remove: func(child entity.Entity) {
			field, _ := entityField(parent, path)
			for i := 0; i < field.Len(); i++ {
				if field.Index(i).Interface() == child {
					next := reflect.AppendSlice(field.Slice(0, i), field.Slice(i+1, field.Len()))
					field.Set(next)
					return
				}
			}
		},
	}, nil
}
