/*
Package toolbox provides the built-in capabilities: file system tools and browser tools.

Tools are registered on a registry.Registry. They do not decide whether a call is allowed;
the guardrail does that before a call reaches them. The browser tools still refuse to act on
password inputs at runtime, because the page may differ from what the selector suggested.
*/
package toolbox
