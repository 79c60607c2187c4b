// Package apptag declares the identifiers the application ships with.
//
// The exported handle variables are filled in when a registry built from
// Declarations is initialized.
package apptag

import "github.com/zeusync/idstring/pkg/idstring"

// Marker types, used as type keys.
type (
	AbilityTag struct{}
	AttackTag  struct{}
	StatusTag  struct{}
	BattleTag  struct{}
	Hiding     struct{}
)

var Ability struct {
	Dead   idstring.Handle
	Arrive idstring.Handle
	Attack struct {
		Normal     idstring.Handle
		DashAttack idstring.Handle
	}
}

var Status struct {
	Poison       idstring.Handle
	SecretStatus idstring.Handle
	Stun         idstring.Handle
}

var Battle struct {
	Battle idstring.Handle
	Field  idstring.Handle
}

var Hidden struct {
	HidingA idstring.Handle
	HidingB idstring.Handle
}

// Global paths not owned by any type.
const (
	GlobalChild      = "Global.Parent.Child"
	GlobalGrandchild = "Global.Parent.Child.Grandchild"
)

// Declarations returns the built-in declaration set.
func Declarations() idstring.Declarations {
	return idstring.Declarations{
		Defines: []idstring.Define{
			{Name: GlobalChild},
			{Name: GlobalGrandchild, Description: "grandchild of a global declaration"},
		},
		Members: []idstring.Member{
			idstring.Type[AbilityTag]("AbilityTag", idstring.Define{Description: "ability tags", Order: -2},
				idstring.Value("Dead", &Ability.Dead, idstring.Define{Description: "dead"}),
				idstring.Type[AttackTag]("Attack", idstring.Define{Description: "attack tags", Order: -1},
					idstring.Value("Normal", &Ability.Attack.Normal, idstring.Define{}),
					idstring.Value("DashAttack", &Ability.Attack.DashAttack, idstring.Define{}),
				),
				idstring.Value("Arrive", &Ability.Arrive, idstring.Define{Description: "alive"}),
			),
			idstring.Type[StatusTag]("StatusTag", idstring.Define{Description: "status tags"},
				idstring.Value("Poison", &Status.Poison, idstring.Define{}),
				idstring.Value("SecretStatus", &Status.SecretStatus, idstring.Define{Hide: true}),
				idstring.Value("Stun", &Status.Stun, idstring.Define{}),
			),
			idstring.Type[BattleTag]("BattleTag", idstring.Define{Description: "battle tags"},
				idstring.Value("Battle", &Battle.Battle, idstring.Define{}),
				idstring.Value("Field", &Battle.Field, idstring.Define{}),
			),
			idstring.Type[Hiding]("Hiding", idstring.Define{Description: "hidden from viewers", Hide: true},
				idstring.Value("HidingA", &Hidden.HidingA, idstring.Define{}),
				idstring.Value("HidingB", &Hidden.HidingB, idstring.Define{}),
			),
		},
	}
}
