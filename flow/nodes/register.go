package nodes

import (
	"github.com/flowforge/flowrun/flow"
	"github.com/flowforge/flowrun/flow/registry"
)

// RegisterDefaults wires one Handler per flow.NodeKind into reg. run is the
// callback CONDITION and FOR_EACH use to execute their nested node lists;
// the flow executor supplies its own node-dispatch loop here to avoid an
// import cycle between this package and flow/executor.
func RegisterDefaults(reg *registry.Registry, run BranchExecutor) {
	reg.Register(flow.NodeLLM, LLMHandler{})
	reg.Register(flow.NodeDocumentSplitter, DocumentSplitterHandler{})
	reg.Register(flow.NodeTextEmbedding, TextEmbeddingHandler{})
	reg.Register(flow.NodeVectorInsert, VectorInsertHandler{})
	reg.Register(flow.NodeVectorSearch, VectorSearchHandler{})
	reg.Register(flow.NodeVectorUpdate, VectorUpdateHandler{})
	reg.Register(flow.NodeVectorDelete, VectorDeleteHandler{})
	reg.Register(flow.NodeUpdateVariable, UpdateVariableHandler{})
	reg.Register(flow.NodeCondition, ConditionHandler{Run: run})
	reg.Register(flow.NodeForEach, ForEachHandler{Run: run})
}
