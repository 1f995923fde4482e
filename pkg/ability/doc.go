// Package ability computes permission predicates from granted permissions.
//
// An Ability is built fresh from an identity's permission set and answers
// whether a scope such as "article.find" is granted. Grants support
// hierarchical wildcards ("article.*") and the global wildcard ("*").
//
// Basic usage:
//
//	ab := ability.New([]ability.Permission{
//		{Action: "article.find"},
//		{Action: "comment.*"},
//	})
//
//	ab.Can("article.find")    // true
//	ab.Can("comment.create")  // true
//	ab.Can("article.create")  // false
//
// Abilities are cheap to construct and are meant to be rebuilt from current
// permission state for every evaluation rather than cached.
package ability
