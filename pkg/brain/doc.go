/*
Package brain implements ports.Brain on top of a chat model.

LLM renders the task and transcript into chat messages, asks the model for one JSON object
and parses it into a domain.Plan:

	{"thought": "...", "action": "list_files", "params": {"path": "."}}
	{"thought": "...", "final_answer": "..."}

Output that does not fit this shape is returned as *domain.PlanError so the session can
record the failure and let the model try again.
*/
package brain
