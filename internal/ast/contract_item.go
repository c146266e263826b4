package ast

// ContractItem is any top-level declaration inside a contract: a use
// statement, a struct, a function, a resource, an interface, a ghost
// function implementation, or a comment.
type ContractItem interface {
	Node
	isContractItem()
}

func (*ResourceDecl) isContractItem()      {}
func (*InterfaceDecl) isContractItem()     {}
func (*GhostFunctionDecl) isContractItem() {}
