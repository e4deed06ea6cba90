// Package querylanguage decodes YAML descriptor files into the operations
// compiled by dialect/sql.
//
// A descriptor declares models and a list of operations:
//
//	dialect: postgres
//	models:
//	  - name: User
//	    table: users
//	    attributes:
//	      - {name: id, type: int, autoIncrement: true}
//	      - {name: firstName, field: first_name, type: string}
//	      - {name: age, type: int}
//	    associations:
//	      - {kind: hasMany, as: posts, target: Post, foreignKey: userId}
//	  - name: Post
//	    table: posts
//	    attributes:
//	      - {name: id, type: int, autoIncrement: true}
//	      - {name: userId, field: user_id, type: int}
//	      - {name: title, type: string}
//	operations:
//	  - name: adults
//	    select:
//	      model: User
//	      attributes: [id, firstName]
//	      where: {age: {gte: 18}, or: [{firstName: Ada}, {firstName: Grace}]}
//	      include: [{as: posts, attributes: [title]}]
//	      order: [[id, DESC]]
//	      limit: 10
//
// Condition mappings keep their document order, so the compiled SQL lists
// predicates in the order they were written. Values may carry the local
// tags !col (column reference), !fn (function call), !cast, !uuid and !lit
// (verbatim SQL).
package querylanguage
