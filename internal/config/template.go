package config

// DefaultConfigYAML returns a commented YAML document for init-config.
// Parsing it yields DefaultConfig.
func DefaultConfigYAML() string {
	return `# glyphgate configuration
# Symbols accept either literal form: '\u{E100}' or U+E100.

gate:
  # Minimum gated weight for a tier transition to pass (0..1).
  threshold: 0.5
  # weighted: 1 - weighted mean of the delta components
  # product:  (1-structural) * (1-environmental) * (1-semantic)
  combiner: weighted
  weights:
    structural: 0.4
    environmental: 0.3
    semantic: 0.3
  # Deny upward transitions skipping more than this many tiers (0 = off).
  max_tier_step: 0

router:
  history_capacity: 1000
  # Ranges routed more often than this between optimizer passes are promoted.
  optimize_threshold: 100
  entries:
    - {low: U+E100, high: U+E1FF, target: core-dispatcher, priority: high, context_aware: false}
    - {low: U+E200, high: U+E3FF, target: hash-engine, priority: high, context_aware: false}
    - {low: U+E400, high: U+E4FF, target: context-graph, priority: medium, context_aware: true}
    - {low: U+E500, high: U+E5FF, target: intel-collector, priority: critical, context_aware: true}
    - {low: U+E600, high: U+E6FF, target: environment-monitor, priority: low, context_aware: true}
    - {low: U+E800, high: U+E8FF, target: tool-executor, priority: medium, context_aware: false}
    - {low: U+E900, high: U+E9FF, target: sensor-bridge, priority: low, context_aware: false}

# Operation kind -> symbols. The primary must be one of the symbols.
bindings:
  - {name: hash_trigger, symbols: [U+E200, U+E300, U+E380], primary: U+E200}
  - {name: intel_collection, symbols: [U+E500, U+E400, U+E600], primary: U+E500}
  - {name: pentest_spawn, symbols: [U+E101, U+E800], primary: U+E101}
  - {name: ephemeral_asset, symbols: [U+E102, U+E601], primary: U+E102}
  - {name: node_interview, symbols: [U+E401, U+E501], primary: U+E401}
  - {name: tool_invocation, symbols: [U+E801], primary: U+E801}
  - {name: workflow, symbols: [U+E103], primary: U+E103}
  - {name: parallel_group, symbols: [U+E104], primary: U+E104}
  - {name: conditional, symbols: [U+E105], primary: U+E105}

audit:
  # JSONL decision log; empty disables recording.
  path: ""
  buffer: 1024
`
}
